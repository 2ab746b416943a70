// Package orchestrator wires the registry, router and strategy engine into
// a single run path: route a task, execute it, feed the outcome back.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/taskgate/pkg/logging"
	"github.com/zen-systems/taskgate/pkg/registry"
	"github.com/zen-systems/taskgate/pkg/router"
	"github.com/zen-systems/taskgate/pkg/strategy"
	"github.com/zen-systems/taskgate/pkg/task"
)

const defaultBatchConcurrency = 4

// Report is the outcome of running one task.
type Report struct {
	Task      *task.Task          `json:"task"`
	Decision  *router.Decision    `json:"decision,omitempty"`
	Execution *strategy.Execution `json:"execution,omitempty"`
	Grouped   bool                `json:"grouped,omitempty"`
	Error     string              `json:"error,omitempty"`
	Duration  time.Duration       `json:"duration"`
}

// RunOptions tune a single run.
type RunOptions struct {
	OnChunk task.ChunkFunc
}

// Service runs tasks end to end.
type Service struct {
	registry *registry.Registry
	router   *router.Router
	engine   *strategy.Engine
	logger   *zap.Logger

	batchConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(logger) }
}

// WithBatchConcurrency bounds how many tasks RunBatch executes at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// New creates a Service. The engine should record performance into reg so
// routing learns from executions.
func New(reg *registry.Registry, rt *router.Router, eng *strategy.Engine, opts ...Option) *Service {
	s := &Service{
		registry:         reg,
		router:           rt,
		engine:           eng,
		logger:           zap.NewNop(),
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the adapter registry.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Router returns the task router.
func (s *Service) Router() *router.Router { return s.router }

// Engine returns the strategy engine.
func (s *Service) Engine() *strategy.Engine { return s.engine }

// Run routes t and executes it with the decided adapter and strategy. The
// report is returned even when execution fails.
func (s *Service) Run(ctx context.Context, t *task.Task, opts RunOptions) (*Report, error) {
	start := time.Now()
	report := &Report{Task: t}

	d, err := s.router.Route(ctx, t)
	if err != nil {
		report.Error = err.Error()
		report.Duration = time.Since(start)
		return report, fmt.Errorf("failed to route task %s: %w", t.ID, err)
	}
	report.Decision = d

	err = s.execute(ctx, report, opts)
	report.Duration = time.Since(start)
	return report, err
}

// RunBatch routes tasks as a batch and executes them concurrently. Reports
// come back in input order; the error joins every task failure.
func (s *Service) RunBatch(ctx context.Context, tasks []*task.Task) ([]*Report, error) {
	start := time.Now()
	assignments, routeErr := s.router.RouteBatch(ctx, tasks)

	reports := make([]*Report, len(assignments))
	errs := make([]error, len(assignments))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, a := range assignments {
		reports[i] = &Report{Task: a.Task, Decision: a.Decision, Grouped: a.Grouped}
		if a.Err != nil {
			reports[i].Error = a.Err.Error()
			continue
		}
		g.Go(func() error {
			taskStart := time.Now()
			errs[i] = s.execute(ctx, reports[i], RunOptions{})
			reports[i].Duration = time.Since(taskStart)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("batch finished",
		zap.Int("tasks", len(tasks)),
		zap.Duration("elapsed", time.Since(start)))
	return reports, errors.Join(append([]error{routeErr}, errs...)...)
}

func (s *Service) execute(ctx context.Context, report *Report, opts RunOptions) error {
	d := report.Decision
	eopts := strategy.Options{
		OnChunk:        opts.OnChunk,
		AdapterName:    d.AdapterName,
		AdapterVersion: d.AdapterVersion,
	}
	// A shared decision's strategy was chosen for another task's shape;
	// let the chain pick for this one.
	if d.TaskID == report.Task.ID {
		eopts.Strategy = d.Strategy
	}
	exec, err := s.engine.Execute(ctx, d.Adapter, report.Task, eopts)
	if err != nil {
		report.Error = err.Error()
		var exhausted *strategy.ExhaustedError
		if errors.As(err, &exhausted) {
			report.Execution = &strategy.Execution{Attempts: exhausted.Attempts, Duration: exhausted.Duration}
		}
		return fmt.Errorf("task %s on %s@%s: %w", report.Task.ID, d.AdapterName, d.AdapterVersion, err)
	}
	report.Execution = exec

	s.logger.Info("task completed",
		zap.String("task", report.Task.ID),
		zap.String("adapter", d.AdapterName),
		zap.String("version", d.AdapterVersion),
		zap.String("strategy", exec.Strategy.String()),
		zap.String("status", string(exec.Result.Status)),
		zap.Duration("elapsed", exec.Duration))
	return nil
}
