// Package adapter defines the contract every task-execution backend
// implements, plus the provider-backed and mock implementations.
package adapter

import (
	"context"

	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/task"
)

// Adapter executes tasks and describes its own capabilities.
type Adapter interface {
	// Name returns the adapter's identifier.
	Name() string

	// Version returns the adapter's API version (semantic version string).
	Version() string

	// Capabilities returns the current capability snapshot.
	Capabilities() *capability.Profile

	// SupportsFeature resolves a feature name against the capabilities.
	SupportsFeature(name string) bool

	// FeatureConfig returns the config of a detailed feature, or nil.
	FeatureConfig(name string) map[string]any

	// ExecuteTask runs a single task.
	ExecuteTask(ctx context.Context, t *task.Task) (*task.Result, error)
}

// SubAgentExecutor is implemented by adapters that can run a delegation plan.
type SubAgentExecutor interface {
	ExecuteWithSubAgents(ctx context.Context, plan *SubAgentPlan) (*task.Result, error)
}

// StreamingExecutor is implemented by adapters with native streaming output.
type StreamingExecutor interface {
	ExecuteWithStreaming(ctx context.Context, req StreamRequest) (*task.Result, error)
}

// CapabilityNotifier is implemented by adapters whose capabilities can
// change at runtime. The returned function removes the observer.
type CapabilityNotifier interface {
	OnCapabilityChange(fn capability.ChangeFunc) (unsubscribe func())
}

// SubAgentPlan is a task decomposed into role-scoped assignments.
type SubAgentPlan struct {
	Task          *task.Task
	Agents        []AgentAssignment
	MaxConcurrent int
}

// AgentAssignment is the work handed to one sub-agent.
type AgentAssignment struct {
	Role string
	Task *task.Task
}

// StreamRequest asks for streamed execution of a task.
type StreamRequest struct {
	Task    *task.Task
	OnChunk task.ChunkFunc
}
