package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/config"
	"github.com/zen-systems/taskgate/pkg/event"
	"github.com/zen-systems/taskgate/pkg/metrics"
	"github.com/zen-systems/taskgate/pkg/router"
	"github.com/zen-systems/taskgate/pkg/strategy"
	"github.com/zen-systems/taskgate/pkg/task"
)

func newService(t *testing.T, factory AdapterFactory) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	deps := Deps{Bus: event.NewBus(), Metrics: metrics.New(reg)}
	svc, err := FromConfig(context.Background(), config.Default(), deps, factory)
	require.NoError(t, err)
	return svc, reg
}

func TestRunRoutesExecutesAndRecords(t *testing.T) {
	svc, promReg := newService(t, nil)

	report, err := svc.Run(context.Background(), &task.Task{
		ID:          "t1",
		Type:        "generation",
		Description: "add a health check",
		Context:     &task.Context{Files: []string{"main.go"}},
	}, RunOptions{})
	require.NoError(t, err)

	require.NotNil(t, report.Decision)
	assert.Equal(t, "mock", report.Decision.AdapterName)
	require.NotNil(t, report.Execution)
	assert.Equal(t, task.StatusCompleted, report.Execution.Result.Status)
	assert.Empty(t, report.Error)

	rec, ok := svc.Registry().Performance("mock", "1.0.0")
	require.True(t, ok)
	assert.Equal(t, 1, rec.TotalExecutions)

	series, err := testutil.GatherAndCount(promReg, "taskgate_adapter_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestRunUsesDecidedStrategy(t *testing.T) {
	svc, _ := newService(t, nil)

	report, err := svc.Run(context.Background(), &task.Task{
		ID:      "t1",
		Type:    "analysis",
		Context: &task.Context{Files: []string{"a.go", "b.go", "c.go"}},
	}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, strategy.Parallel, report.Decision.Strategy)
	assert.Equal(t, strategy.Parallel, report.Execution.Strategy)
	assert.Equal(t, strategy.Parallel, report.Execution.Attempts[0].Strategy)
}

func TestRunStreamsChunks(t *testing.T) {
	svc, _ := newService(t, nil)

	var chunks int
	report, err := svc.Run(context.Background(), &task.Task{
		ID:        "t1",
		Type:      "documentation",
		Streaming: true,
	}, RunOptions{OnChunk: func(task.Chunk) { chunks++ }})
	require.NoError(t, err)
	assert.Equal(t, strategy.Streaming, report.Execution.Strategy)
	assert.Positive(t, chunks)
}

func TestRunNoSuitableAdapter(t *testing.T) {
	svc, _ := newService(t, nil)

	report, err := svc.Run(context.Background(), &task.Task{
		ID:         "t2",
		Extensions: map[string]map[string]any{"acme": {"features": []any{"telepathy"}}},
	}, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, router.ErrNoSuitableAdapter))
	assert.Nil(t, report.Execution)
	assert.NotEmpty(t, report.Error)
}

func failingFactory(ctx context.Context, provider string, cfg adapter.ProviderConfig) (adapter.Adapter, error) {
	return adapter.NewMock(cfg.Name, cfg.Version, cfg.Capabilities,
		adapter.WithFailure(func(*task.Task) error { return errors.New("offline") })), nil
}

func TestRunExhaustionKeepsAttempts(t *testing.T) {
	svc, _ := newService(t, failingFactory)

	report, err := svc.Run(context.Background(), &task.Task{ID: "t1", Type: "generation"}, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, strategy.ErrAllStrategiesFailed))
	require.NotNil(t, report.Execution)
	assert.NotEmpty(t, report.Execution.Attempts)

	rec, ok := svc.Registry().Performance("mock", "")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Failures)
}

func TestRunBatch(t *testing.T) {
	svc, _ := newService(t, nil)

	tasks := []*task.Task{
		{ID: "a", Type: "generation", Context: &task.Context{Files: []string{"a.go"}}},
		{ID: "b", Type: "generation", Context: &task.Context{Files: []string{"b.go"}}},
		{ID: "c", Type: "testing", Context: &task.Context{Files: []string{"c_test.go", "d_test.go", "e_test.go"}}},
		{ID: "d", Extensions: map[string]map[string]any{"acme": {"features": []any{"telepathy"}}}},
	}
	reports, err := svc.RunBatch(context.Background(), tasks)
	require.Error(t, err)
	assert.True(t, errors.Is(err, router.ErrNoSuitableAdapter))
	require.Len(t, reports, 4)

	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, reports[i].Task.ID)
		require.NotNil(t, reports[i].Execution, id)
		assert.Equal(t, id, reports[i].Execution.Result.TaskID)
	}
	assert.True(t, reports[1].Grouped)
	assert.Same(t, reports[0].Decision, reports[1].Decision)
	assert.Nil(t, reports[3].Execution)
	assert.NotEmpty(t, reports[3].Error)

	rec, _ := svc.Registry().Performance("mock", "1.0.0")
	assert.Equal(t, 3, rec.TotalExecutions)
}

func TestFromConfigSkipsAdaptersWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.APIKeys = config.APIKeys{}
	cfg.Adapters = []config.AdapterConfig{{Name: "claude", Provider: "anthropic", Version: "1.0.0"}}

	_, err := FromConfig(context.Background(), cfg, Deps{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapters available")
}

func TestFromConfigRegistersVersions(t *testing.T) {
	notDefault := false
	profile := capability.Profile{Features: map[string]capability.Feature{"generation": capability.Bool(true)}}
	cfg := config.Default()
	cfg.Adapters = []config.AdapterConfig{
		{Name: "m", Provider: "mock", Version: "1.0.0", Capabilities: profile},
		{Name: "m", Provider: "mock", Version: "2.0.0", Default: &notDefault, Capabilities: profile},
	}

	svc, err := FromConfig(context.Background(), cfg, Deps{}, nil)
	require.NoError(t, err)

	def, ok := svc.Registry().Get("m", "")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", def.Version)
	latest, _ := svc.Registry().GetLatest("m")
	assert.Equal(t, "2.0.0", latest.Version)
}
