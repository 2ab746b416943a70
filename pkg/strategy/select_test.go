package strategy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/task"
)

func TestAvailable(t *testing.T) {
	full := adapter.NewMock("full", "", capability.Profile{
		Streaming: true,
		SubAgents: capability.SubAgents{Supported: true},
		Features: map[string]capability.Feature{
			capability.FeatureParallelExecution: capability.Bool(true),
		},
	})
	bare := adapter.NewMock("bare", "", capability.Profile{})

	for _, name := range DefaultOrder() {
		assert.True(t, Available(name, full), name)
	}
	assert.False(t, Available(SubAgents, bare))
	assert.False(t, Available(Parallel, bare))
	assert.False(t, Available(Streaming, bare))
	assert.True(t, Available(Batched, bare))
	assert.True(t, Available(Sequential, bare))
	assert.False(t, Available("warp", full))
}

func TestSuitable(t *testing.T) {
	tests := []struct {
		name     string
		strategy Name
		task     *task.Task
		chunks   bool
		want     bool
	}{
		{"subAgents high complexity", SubAgents, &task.Task{Complexity: task.ComplexityHigh}, false, true},
		{"subAgents long description", SubAgents, &task.Task{Description: strings.Repeat("x", 501)}, false, true},
		{"subAgents many files", SubAgents, &task.Task{Context: &task.Context{Files: files(6)}}, false, true},
		{"subAgents small task", SubAgents, &task.Task{Context: &task.Context{Files: files(5)}}, false, false},
		{"parallel three files", Parallel, &task.Task{Context: &task.Context{Files: files(3)}}, false, true},
		{"parallel validation", Parallel, &task.Task{Type: "validation"}, false, true},
		{"parallel two files", Parallel, &task.Task{Context: &task.Context{Files: files(2)}}, false, false},
		{"streaming requested", Streaming, &task.Task{Streaming: true}, false, true},
		{"streaming callback", Streaming, &task.Task{}, true, true},
		{"streaming neither", Streaming, &task.Task{}, false, false},
		{"batched eleven files", Batched, &task.Task{Context: &task.Context{Files: files(11)}}, false, true},
		{"batched ten files", Batched, &task.Task{Context: &task.Context{Files: files(10)}}, false, false},
		{"sequential always", Sequential, &task.Task{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suitable(tt.strategy, tt.task, tt.chunks))
		})
	}
}

func TestSplitHelpers(t *testing.T) {
	assert.Equal(t, [][]string{nil}, splitEvenly(nil, 3))
	assert.Len(t, splitEvenly(files(2), 5), 2)

	assert.Equal(t, [][]string{nil}, chunkFiles(nil, 5))
	assert.Len(t, chunkFiles(files(11), 5), 3)

	assert.Equal(t, []string{""}, splitChunks("", 10))
	assert.Equal(t, []string{"héllo", " wörl", "d"}, splitChunks("héllo wörld", 5))
}
