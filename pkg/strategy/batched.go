package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/artifact"
	"github.com/zen-systems/taskgate/pkg/event"
	"github.com/zen-systems/taskgate/pkg/task"
)

// runBatched executes the files in fixed-size chunks, one after another,
// publishing progress after each chunk.
func (e *Engine) runBatched(ctx context.Context, a adapter.Adapter, t *task.Task) (*task.Result, error) {
	batches := chunkFiles(t.Files(), e.batchSize)

	outputs := make([]string, 0, len(batches))
	artifacts := make([][]*artifact.Artifact, 0, len(batches))
	for i, files := range batches {
		sub := t
		if len(batches) > 1 {
			sub = t.Subtask(fmt.Sprintf("batch-%d", i+1), files)
		}
		res, err := a.ExecuteTask(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		if res == nil {
			return nil, fmt.Errorf("batch %d/%d: no result", i+1, len(batches))
		}
		outputs = append(outputs, res.Output)
		artifacts = append(artifacts, res.Artifacts)
		e.bus.Publish(event.NewBatchProgressEvent(t.ID, i+1, len(batches)))
	}

	res := &task.Result{
		TaskID:    t.ID,
		Status:    task.StatusCompleted,
		Output:    strings.Join(outputs, "\n"),
		Artifacts: artifact.Flatten(artifacts...),
	}
	res.SetMeta("batchCount", len(batches))
	return res, nil
}

// chunkFiles splits files into consecutive groups of size. No files yields
// a single empty group.
func chunkFiles(files []string, size int) [][]string {
	if len(files) == 0 {
		return [][]string{nil}
	}
	if size <= 0 {
		size = len(files)
	}
	var out [][]string
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		out = append(out, files[start:end])
	}
	return out
}
