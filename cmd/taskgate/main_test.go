package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/taskgate/pkg/task"
)

func TestTaskFlagsFromFlags(t *testing.T) {
	f := taskFlags{
		description: "add retries",
		taskType:    "generation",
		files:       []string{"client.go"},
		strategy:    "sequential",
	}
	tasks, err := f.tasks(nil, strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got := tasks[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "generation", got.Type)
	assert.Equal(t, []string{"client.go"}, got.Files())
	assert.Equal(t, "sequential", got.RequestedStrategy())
}

func TestTaskFlagsDescriptionFromStdin(t *testing.T) {
	f := taskFlags{description: "-"}
	tasks, err := f.tasks(nil, strings.NewReader("  explain the cache\n"))
	require.NoError(t, err)
	assert.Equal(t, "explain the cache", tasks[0].Description)
}

func TestTaskFlagsRequireInput(t *testing.T) {
	var f taskFlags
	_, err := f.tasks(nil, strings.NewReader(""))
	assert.Error(t, err)
}

func TestTaskFlagsFromFileAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`tasks:
  - id: a
    type: analysis
  - id: b
    type: testing
`), 0o644))

	f := taskFlags{streaming: true, strategy: "batched"}
	tasks, err := f.tasks([]string{path}, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, tk := range tasks {
		assert.True(t, tk.Streaming)
		assert.Equal(t, "batched", tk.ExecutionStrategy)
	}
	assert.Equal(t, task.Complexity(""), tasks[0].Complexity)
}
