package strategy

import (
	"context"
	"fmt"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/task"
)

// roleTemplates decompose well-known task types into fixed roles.
var roleTemplates = map[string][]string{
	"generation":  {"architect", "implementer", "reviewer"},
	"refactoring": {"analyzer", "refactorer", "validator"},
	"testing":     {"planner", "writer", "runner"},
}

func (e *Engine) runSubAgents(ctx context.Context, a adapter.Adapter, t *task.Task) (*task.Result, error) {
	exec, ok := a.(adapter.SubAgentExecutor)
	if !ok {
		return nil, fmt.Errorf("%s: %w", a.Name(), adapter.ErrSubAgentsUnsupported)
	}

	plan := e.planSubAgents(a, t)
	res, err := exec.ExecuteWithSubAgents(ctx, plan)
	if err != nil {
		return nil, err
	}
	if res != nil {
		res.SetMeta("subAgents", len(plan.Agents))
	}
	return res, nil
}

// planSubAgents splits t by role template, or evenly by file across the
// adapter's sub-agent limit when the type has no template.
func (e *Engine) planSubAgents(a adapter.Adapter, t *task.Task) *adapter.SubAgentPlan {
	limit := e.defaultConcurrency
	if caps := a.Capabilities(); caps != nil && caps.SubAgents.MaxConcurrent > 0 {
		limit = caps.SubAgents.MaxConcurrent
	}
	plan := &adapter.SubAgentPlan{Task: t, MaxConcurrent: limit}

	if roles, ok := roleTemplates[t.Type]; ok {
		for _, role := range roles {
			plan.Agents = append(plan.Agents, assignment(t, role, t.Files()))
		}
		return plan
	}

	for i, files := range splitEvenly(t.Files(), limit) {
		plan.Agents = append(plan.Agents, assignment(t, fmt.Sprintf("worker-%d", i+1), files))
	}
	return plan
}

func assignment(t *task.Task, role string, files []string) adapter.AgentAssignment {
	sub := t.Subtask(role, files)
	sub.Role = role
	return adapter.AgentAssignment{Role: role, Task: sub}
}

// splitEvenly deals files into at most n groups whose sizes differ by at
// most one. No files yields a single empty group.
func splitEvenly(files []string, n int) [][]string {
	if len(files) == 0 {
		return [][]string{nil}
	}
	if n <= 0 {
		n = 1
	}
	if n > len(files) {
		n = len(files)
	}
	groups := make([][]string, n)
	base, extra := len(files)/n, len(files)%n
	idx := 0
	for i := range groups {
		size := base
		if i < extra {
			size++
		}
		groups[i] = files[idx : idx+size]
		idx += size
	}
	return groups
}
