package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Kind classifies what an artifact holds.
type Kind string

const (
	KindText  Kind = "text"
	KindFile  Kind = "file"
	KindPatch Kind = "patch"
)

// Artifact is an immutable output produced while executing a task.
type Artifact struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Path      string            `json:"path,omitempty"`
	Content   string            `json:"content"`
	Adapter   string            `json:"adapter"`
	TaskID    string            `json:"task_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Hash      string            `json:"hash"`
}

// New creates a new Artifact with computed hash.
func New(kind Kind, content, adapter, taskID string) *Artifact {
	a := &Artifact{
		ID:        uuid.NewString(),
		Kind:      kind,
		Content:   content,
		Adapter:   adapter,
		TaskID:    taskID,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
	a.Hash = a.computeHash()
	return a
}

// NewFile creates a file artifact for path.
func NewFile(path, content, adapter, taskID string) *Artifact {
	a := New(KindFile, content, adapter, taskID)
	a.Path = path
	a.Hash = a.computeHash()
	return a
}

// WithMetadata returns a copy of the artifact with an additional metadata key.
func (a *Artifact) WithMetadata(key, value string) *Artifact {
	out := *a
	out.Metadata = copyMetadata(a.Metadata)
	out.Metadata[key] = value
	return &out
}

// Flatten concatenates artifact lists, dropping nil entries.
func Flatten(groups ...[]*Artifact) []*Artifact {
	var out []*Artifact
	for _, group := range groups {
		for _, a := range group {
			if a != nil {
				out = append(out, a)
			}
		}
	}
	return out
}

func (a *Artifact) computeHash() string {
	h := sha256.New()
	h.Write([]byte(a.Kind))
	h.Write([]byte(a.Path))
	h.Write([]byte(a.Content))
	h.Write([]byte(a.Adapter))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func copyMetadata(m map[string]string) map[string]string {
	newM := make(map[string]string, len(m))
	for k, v := range m {
		newM[k] = v
	}
	return newM
}
