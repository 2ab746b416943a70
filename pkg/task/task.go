// Package task defines the unit of work routed to adapters and the result
// shape adapters return.
package task

import (
	"fmt"
	"sort"

	"github.com/zen-systems/taskgate/pkg/artifact"
)

// Complexity is a caller-supplied hint about task difficulty.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Context carries the material a task operates on.
type Context struct {
	Files   []string `yaml:"files,omitempty" json:"files,omitempty"`
	Content string   `yaml:"content,omitempty" json:"content,omitempty"`
}

// Task is a unit of work. Extensions hold vendor-specific overrides keyed
// by vendor name.
type Task struct {
	ID                string                    `yaml:"id" json:"id"`
	Type              string                    `yaml:"type" json:"type"`
	Description       string                    `yaml:"description" json:"description"`
	Context           *Context                  `yaml:"context,omitempty" json:"context,omitempty"`
	Extensions        map[string]map[string]any `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	Complexity        Complexity                `yaml:"complexity,omitempty" json:"complexity,omitempty"`
	Streaming         bool                      `yaml:"streaming,omitempty" json:"streaming,omitempty"`
	ExecutionStrategy string                    `yaml:"execution_strategy,omitempty" json:"executionStrategy,omitempty"`

	// Set on tasks derived by decomposition.
	ParentID string `yaml:"-" json:"parentId,omitempty"`
	Role     string `yaml:"-" json:"role,omitempty"`
}

// Files returns the context files, or nil.
func (t *Task) Files() []string {
	if t == nil || t.Context == nil {
		return nil
	}
	return t.Context.Files
}

// Content returns the inline context content, or "".
func (t *Task) Content() string {
	if t == nil || t.Context == nil {
		return ""
	}
	return t.Context.Content
}

// Subtask derives a child task scoped to files. The child keeps the parent's
// type, description, content and extensions but never an explicit strategy.
func (t *Task) Subtask(suffix string, files []string) *Task {
	child := &Task{
		ID:          fmt.Sprintf("%s-%s", t.ID, suffix),
		Type:        t.Type,
		Description: t.Description,
		Context:     &Context{Files: append([]string(nil), files...), Content: t.Content()},
		Extensions:  t.Extensions,
		Complexity:  t.Complexity,
		ParentID:    t.ID,
	}
	return child
}

// ExtensionKeys returns the sorted vendor names present in Extensions.
func (t *Task) ExtensionKeys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.Extensions))
	for k := range t.Extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extension returns the first value for key across vendors, visiting
// vendors in sorted order.
func (t *Task) Extension(key string) (any, bool) {
	for _, vendor := range t.ExtensionKeys() {
		if v, ok := t.Extensions[vendor][key]; ok {
			return v, true
		}
	}
	return nil, false
}

// RequestedStrategy returns the explicit strategy override, preferring the
// task field over vendor extensions.
func (t *Task) RequestedStrategy() string {
	if t == nil {
		return ""
	}
	if t.ExecutionStrategy != "" {
		return t.ExecutionStrategy
	}
	for _, key := range []string{"executionStrategy", "execution_strategy"} {
		if v, ok := t.Extension(key); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Status is the completion state of a Result.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Result is what an adapter returns for a task.
type Result struct {
	TaskID    string               `json:"taskId"`
	Status    Status               `json:"status"`
	Output    string               `json:"output"`
	Artifacts []*artifact.Artifact `json:"artifacts,omitempty"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
}

// SetMeta records a metadata value, allocating the map on first use.
func (r *Result) SetMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// Chunk is one slice of streamed output.
type Chunk struct {
	Index    int     `json:"index"`
	Content  string  `json:"content"`
	Progress float64 `json:"progress"`
}

// ChunkFunc receives streamed chunks.
type ChunkFunc func(Chunk)
