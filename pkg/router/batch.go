package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/zen-systems/taskgate/pkg/task"
)

// groupTolerance is how far, relative to a group's first task, a context
// estimate may stray and still join the group.
const groupTolerance = 0.2

// Assignment pairs a task with its decision. Grouped is set on every member
// of a group except the one that was actually routed.
type Assignment struct {
	Task     *task.Task
	Decision *Decision
	Grouped  bool
	Err      error
}

type batchGroup struct {
	primary  int
	members  []int
	taskType string
	extKeys  string
	estimate int
}

// RouteBatch routes tasks in groups of similar work: same type, context
// estimates within 20% of the group's first task and identical extension
// vendors. Each group is routed once. Assignments come back in input order;
// the returned error joins the failures of every group that could not be
// routed.
func (r *Router) RouteBatch(ctx context.Context, tasks []*task.Task) ([]Assignment, error) {
	assignments := make([]Assignment, len(tasks))
	var groups []*batchGroup

	for i, t := range tasks {
		assignments[i].Task = t
		if t == nil {
			assignments[i].Err = fmt.Errorf("route: nil task at index %d", i)
			continue
		}
		estimate := r.estimateContext(t)
		extKeys := strings.Join(t.ExtensionKeys(), ",")

		var joined bool
		for _, g := range groups {
			if g.taskType == t.Type && g.extKeys == extKeys && withinTolerance(g.estimate, estimate) {
				g.members = append(g.members, i)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, &batchGroup{
				primary:  i,
				members:  []int{i},
				taskType: t.Type,
				extKeys:  extKeys,
				estimate: estimate,
			})
		}
	}

	var errs []error
	for _, g := range groups {
		d, err := r.Route(ctx, tasks[g.primary])
		if err != nil {
			errs = append(errs, err)
		}
		for _, idx := range g.members {
			assignments[idx].Decision = d
			assignments[idx].Err = err
			assignments[idx].Grouped = idx != g.primary
		}
	}
	for _, a := range assignments {
		if a.Task == nil && a.Err != nil {
			errs = append(errs, a.Err)
		}
	}

	r.logger.Debug("batch routed",
		zap.Int("tasks", len(tasks)),
		zap.Int("groups", len(groups)),
		zap.Int("failed_groups", len(errs)))
	return assignments, errors.Join(errs...)
}

func withinTolerance(reference, estimate int) bool {
	if reference == 0 {
		return estimate == 0
	}
	return math.Abs(float64(estimate-reference)) <= groupTolerance*float64(reference)
}
