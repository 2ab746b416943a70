package strategy

import (
	"context"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/task"
)

// runStreaming uses the adapter's native stream when it has one, and
// otherwise replays a regular result in fixed-size chunks.
func (e *Engine) runStreaming(ctx context.Context, a adapter.Adapter, t *task.Task, onChunk task.ChunkFunc) (*task.Result, error) {
	if s, ok := a.(adapter.StreamingExecutor); ok {
		return s.ExecuteWithStreaming(ctx, adapter.StreamRequest{Task: t, OnChunk: onChunk})
	}

	res, err := a.ExecuteTask(ctx, t)
	if err != nil {
		return nil, err
	}

	chunks := splitChunks(res.Output, e.chunkSize)
	for i, c := range chunks {
		if onChunk != nil {
			onChunk(task.Chunk{
				Index:    i,
				Content:  c,
				Progress: float64(i+1) / float64(len(chunks)),
			})
		}
	}
	res.SetMeta("chunks", len(chunks))
	res.SetMeta("simulated_streaming", true)
	return res, nil
}

// splitChunks cuts s into pieces of at most size runes. An empty string
// yields one empty chunk.
func splitChunks(s string, size int) []string {
	runes := []rune(s)
	if len(runes) == 0 || size <= 0 {
		return []string{s}
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
