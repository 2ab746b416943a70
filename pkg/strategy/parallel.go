package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/artifact"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/task"
)

type itemResult struct {
	res *task.Result
	err error
}

// runParallel executes one sub-task per file in batches no larger than the
// adapter's concurrency limit. A batch is fully settled before the next
// starts. Item failures, panics included, do not cancel siblings.
func (e *Engine) runParallel(ctx context.Context, a adapter.Adapter, t *task.Task) (*task.Result, error) {
	files := t.Files()
	if len(files) <= 1 {
		return a.ExecuteTask(ctx, t)
	}

	limit := e.concurrency(a)
	subtasks := make([]*task.Task, len(files))
	for i, f := range files {
		subtasks[i] = t.Subtask(fmt.Sprintf("file-%d", i+1), []string{f})
	}

	items := make([]itemResult, len(subtasks))
	for start := 0; start < len(subtasks); start += limit {
		end := min(start+limit, len(subtasks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				defer func() {
					if p := recover(); p != nil {
						items[i] = itemResult{err: fmt.Errorf("sub-task panicked: %v", p)}
					}
				}()
				res, err := a.ExecuteTask(ctx, subtasks[i])
				if err == nil && res == nil {
					err = fmt.Errorf("no result")
				}
				items[i] = itemResult{res: res, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	return mergeParallel(t, subtasks, items)
}

func mergeParallel(t *task.Task, subtasks []*task.Task, items []itemResult) (*task.Result, error) {
	var (
		outputs   []string
		artifacts [][]*artifact.Artifact
		failures  []string
		errs      []error
	)
	for i, item := range items {
		if item.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", subtasks[i].ID, item.err))
			errs = append(errs, fmt.Errorf("%s: %w", subtasks[i].ID, item.err))
			continue
		}
		outputs = append(outputs, item.res.Output)
		artifacts = append(artifacts, item.res.Artifacts)
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("all %d parallel sub-tasks failed: %w", len(items), errors.Join(errs...))
	}

	status := task.StatusCompleted
	if len(failures) > 0 {
		status = task.StatusPartial
	}
	res := &task.Result{
		TaskID:    t.ID,
		Status:    status,
		Output:    strings.Join(outputs, "\n"),
		Artifacts: artifact.Flatten(artifacts...),
	}
	res.SetMeta("subtasks", len(items))
	res.SetMeta("succeeded", len(outputs))
	res.SetMeta("failed", len(failures))
	if len(failures) > 0 {
		res.SetMeta("failures", failures)
	}
	return res, nil
}

// concurrency resolves the parallel limit: the parallelExecution feature's
// maxConcurrent, then the sub-agent limit, then the engine default.
func (e *Engine) concurrency(a adapter.Adapter) int {
	if n := intValue(a.FeatureConfig(capability.FeatureParallelExecution)["maxConcurrent"]); n > 0 {
		return n
	}
	if caps := a.Capabilities(); caps != nil && caps.SubAgents.MaxConcurrent > 0 {
		return caps.SubAgents.MaxConcurrent
	}
	return e.defaultConcurrency
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case uint64:
		return int(n)
	}
	return 0
}
