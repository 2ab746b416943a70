package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/task"
)

func TestBaseDefaultsVersion(t *testing.T) {
	b := NewBase("claude", "", capability.Profile{Streaming: true})
	assert.Equal(t, "1.0.0", b.Version())
	assert.True(t, b.SupportsFeature("streaming"))
	assert.False(t, b.SupportsFeature("multiFile"))
}

func TestBaseUpdateCapabilitiesNotifies(t *testing.T) {
	b := NewBase("claude", "1.0.0", capability.Profile{MaxContextTokens: 1000})

	var seen []capability.Change
	b.OnCapabilityChange(func(c capability.Change) {
		seen = append(seen, c)
	})

	changes := b.UpdateCapabilities(capability.Profile{MaxContextTokens: 2000})
	require.Len(t, changes, 1)
	require.Len(t, seen, 1)
	assert.Equal(t, "maxContextTokens", seen[0].Capability)
	assert.Equal(t, 2000, b.Capabilities().MaxContextTokens)
}

func TestMockExecuteTask(t *testing.T) {
	m := NewMock("mock", "1.0.0", capability.Profile{},
		WithResponses(map[string]string{"t1": "done"}))

	res, err := m.ExecuteTask(context.Background(), &task.Task{
		ID:      "t1",
		Context: &task.Context{Files: []string{"a.go", "b.go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)
	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Len(t, res.Artifacts, 2)

	res, err = m.ExecuteTask(context.Background(), &task.Task{ID: "t2"})
	require.NoError(t, err)
	assert.Equal(t, "mock response: t2", res.Output)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockFailureIsAdapterError(t *testing.T) {
	m := NewMock("mock", "1.0.0", capability.Profile{},
		WithFailure(func(*task.Task) error { return errors.New("boom") }))

	_, err := m.ExecuteTask(context.Background(), &task.Task{ID: "t1"})
	require.Error(t, err)

	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	assert.Equal(t, "mock", adapterErr.Adapter)
	assert.Contains(t, err.Error(), "boom")
}

func TestMockDelayRespectsContext(t *testing.T) {
	m := NewMock("mock", "1.0.0", capability.Profile{}, WithDelay(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.ExecuteTask(ctx, &task.Task{ID: "t1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDelegatingMockJoinsAgentOutputs(t *testing.T) {
	d := NewDelegatingMock(NewMock("mock", "1.0.0", capability.Profile{}))
	parent := &task.Task{ID: "p"}

	res, err := d.ExecuteWithSubAgents(context.Background(), &SubAgentPlan{
		Task: parent,
		Agents: []AgentAssignment{
			{Role: "architect", Task: parent.Subtask("architect", nil)},
			{Role: "reviewer", Task: parent.Subtask("reviewer", nil)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "[architect] mock response: p-architect\n[reviewer] mock response: p-reviewer", res.Output)
	assert.Len(t, d.Plans(), 1)
	assert.Equal(t, 2, d.CallCount())
}

func TestStreamingMockEmitsChunk(t *testing.T) {
	s := NewStreamingMock(NewMock("mock", "1.0.0", capability.Profile{}))

	var chunks []task.Chunk
	res, err := s.ExecuteWithStreaming(context.Background(), StreamRequest{
		Task:    &task.Task{ID: "t1"},
		OnChunk: func(c task.Chunk) { chunks = append(chunks, c) },
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, res.Output, chunks[0].Content)
	assert.Equal(t, true, res.Metadata["native_streaming"])
}

func TestPlainMockHasNoOptionalEntryPoints(t *testing.T) {
	var a Adapter = NewMock("mock", "1.0.0", capability.Profile{})
	_, delegates := a.(SubAgentExecutor)
	_, streams := a.(StreamingExecutor)
	assert.False(t, delegates)
	assert.False(t, streams)
}

func TestNewMockProviderPicksEntryPoints(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, ProviderMock, ProviderConfig{Name: "m"})
	require.NoError(t, err)
	_, ok := a.(*Mock)
	assert.True(t, ok)

	a, err = New(ctx, ProviderMock, ProviderConfig{Capabilities: capability.Profile{
		Streaming: true,
		SubAgents: capability.SubAgents{Supported: true, MaxConcurrent: 2},
	}})
	require.NoError(t, err)
	assert.Equal(t, "mock", a.Name())
	_, delegates := a.(SubAgentExecutor)
	_, streams := a.(StreamingExecutor)
	assert.True(t, delegates)
	assert.True(t, streams)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), "nope", ProviderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestProvidersRequireAPIKey(t *testing.T) {
	for _, p := range []string{ProviderAnthropic, ProviderOpenAI, ProviderDeepSeek, ProviderGoogle} {
		_, err := New(context.Background(), p, ProviderConfig{})
		require.Error(t, err, p)
		assert.Contains(t, err.Error(), "API key is required", p)
	}
}

func TestRenderPrompt(t *testing.T) {
	prompt := RenderPrompt(&task.Task{
		Type:        "refactoring",
		Role:        "reviewer",
		Description: "tidy the parser",
		Context:     &task.Context{Files: []string{"parse.go"}, Content: "package parse"},
	})

	for _, want := range []string{
		"acting as the reviewer",
		"Task type: refactoring",
		"tidy the parser",
		"- parse.go",
		"package parse",
	} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q", want)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"net timeout", timeoutErr{}, true},
		{"rate limited", &AdapterError{Status: 429}, true},
		{"server error", fmt.Errorf("wrapped: %w", &AdapterError{Status: 503}), true},
		{"bad request", &AdapterError{Status: 400}, false},
		{"temporary flag", &AdapterError{Temporary: true}, true},
		{"plain", errors.New("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
