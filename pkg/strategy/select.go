package strategy

import (
	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/task"
)

// Suitability thresholds.
const (
	subAgentsDescriptionLen = 500
	subAgentsMinFiles       = 5
	parallelMinFiles        = 2
	batchedMinFiles         = 10
)

// Available reports whether a supports the strategy. Batched and sequential
// need nothing beyond ExecuteTask.
func Available(name Name, a adapter.Adapter) bool {
	if a == nil {
		return false
	}
	switch name {
	case SubAgents:
		return a.SupportsFeature(capability.KeySubAgents)
	case Parallel:
		return a.SupportsFeature(capability.FeatureParallelExecution)
	case Streaming:
		return a.SupportsFeature(capability.KeyStreaming)
	case Batched, Sequential:
		return true
	}
	return false
}

// Suitable reports whether the strategy fits the task. wantsChunks is true
// when the caller supplied a chunk callback.
func Suitable(name Name, t *task.Task, wantsChunks bool) bool {
	files := len(t.Files())
	switch name {
	case SubAgents:
		return t.Complexity == task.ComplexityHigh ||
			len(t.Description) > subAgentsDescriptionLen ||
			files > subAgentsMinFiles
	case Parallel:
		return files > parallelMinFiles || t.Type == "validation" || t.Type == "testing"
	case Streaming:
		return t.Streaming || wantsChunks
	case Batched:
		return files > batchedMinFiles
	case Sequential:
		return true
	}
	return false
}
