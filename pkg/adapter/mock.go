package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zen-systems/taskgate/pkg/artifact"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/task"
)

// Mock returns deterministic results for local runs and tests.
type Mock struct {
	*Base

	mu              sync.Mutex
	calls           []*task.Task
	responses       map[string]string
	defaultResponse string
	delay           time.Duration
	fail            func(*task.Task) error
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithResponses maps task IDs to fixed outputs.
func WithResponses(responses map[string]string) MockOption {
	return func(m *Mock) { m.responses = responses }
}

// WithDelay makes every call take at least d, or until ctx is done.
func WithDelay(d time.Duration) MockOption {
	return func(m *Mock) { m.delay = d }
}

// WithFailure makes calls fail whenever fn returns a non-nil error.
func WithFailure(fn func(*task.Task) error) MockOption {
	return func(m *Mock) { m.fail = fn }
}

// NewMock creates a mock adapter with the given capabilities.
func NewMock(name, version string, profile capability.Profile, opts ...MockOption) *Mock {
	m := &Mock{
		Base:            NewBase(name, version, profile),
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExecuteTask records the call and returns a deterministic result.
func (m *Mock) ExecuteTask(ctx context.Context, t *task.Task) (*task.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, t)
	fail := m.fail
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if fail != nil {
		if err := fail(t); err != nil {
			var adapterErr *AdapterError
			if errors.As(err, &adapterErr) {
				return nil, err
			}
			return nil, &AdapterError{Adapter: m.Name(), Err: err}
		}
	}

	output, ok := m.responses[t.ID]
	if !ok {
		output = fmt.Sprintf("%s %s", m.defaultResponse, t.ID)
	}

	result := &task.Result{
		TaskID: t.ID,
		Status: task.StatusCompleted,
		Output: output,
	}
	for _, file := range t.Files() {
		result.Artifacts = append(result.Artifacts, artifact.NewFile(file, output, m.Name(), t.ID))
	}
	return result, nil
}

// Calls returns the tasks received so far, in order.
func (m *Mock) Calls() []*task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*task.Task(nil), m.calls...)
}

// CallCount returns the number of ExecuteTask calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// DelegatingMock is a Mock with a sub-agent entry point.
type DelegatingMock struct {
	*Mock

	mu    sync.Mutex
	plans []*SubAgentPlan
}

// NewDelegatingMock wraps m with sub-agent execution. Each assignment is
// executed through the mock's ExecuteTask.
func NewDelegatingMock(m *Mock) *DelegatingMock {
	return &DelegatingMock{Mock: m}
}

// ExecuteWithSubAgents runs every assignment and joins the outputs.
func (d *DelegatingMock) ExecuteWithSubAgents(ctx context.Context, plan *SubAgentPlan) (*task.Result, error) {
	d.mu.Lock()
	d.plans = append(d.plans, plan)
	d.mu.Unlock()

	result := &task.Result{TaskID: plan.Task.ID, Status: task.StatusCompleted}
	for i, agent := range plan.Agents {
		res, err := d.ExecuteTask(ctx, agent.Task)
		if err != nil {
			return nil, fmt.Errorf("sub-agent %s: %w", agent.Role, err)
		}
		if i > 0 {
			result.Output += "\n"
		}
		result.Output += fmt.Sprintf("[%s] %s", agent.Role, res.Output)
		result.Artifacts = append(result.Artifacts, res.Artifacts...)
	}
	result.SetMeta("agents", len(plan.Agents))
	return result, nil
}

// Plans returns the delegation plans received so far.
func (d *DelegatingMock) Plans() []*SubAgentPlan {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*SubAgentPlan(nil), d.plans...)
}

// StreamingMock is a Mock with a native streaming entry point that emits
// one chunk per word of output.
type StreamingMock struct {
	*Mock
}

// NewStreamingMock wraps m with native streaming.
func NewStreamingMock(m *Mock) *StreamingMock {
	return &StreamingMock{Mock: m}
}

// ExecuteWithStreaming executes the task and streams its output.
func (s *StreamingMock) ExecuteWithStreaming(ctx context.Context, req StreamRequest) (*task.Result, error) {
	res, err := s.ExecuteTask(ctx, req.Task)
	if err != nil {
		return nil, err
	}
	if req.OnChunk != nil {
		req.OnChunk(task.Chunk{Index: 0, Content: res.Output, Progress: 1})
	}
	res.SetMeta("native_streaming", true)
	return res, nil
}
