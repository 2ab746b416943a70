// Package strategy executes a task on an adapter through a fallback chain
// of execution strategies, from the most capable to plain sequential.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/event"
	"github.com/zen-systems/taskgate/pkg/logging"
	"github.com/zen-systems/taskgate/pkg/metrics"
	"github.com/zen-systems/taskgate/pkg/registry"
	"github.com/zen-systems/taskgate/pkg/task"
)

// Status is the outcome of one attempt.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Attempt records one step of the fallback chain.
type Attempt struct {
	Strategy Name          `json:"strategy"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`

	// Transient marks failures likely to clear on retry, such as rate
	// limits and provider 5xx responses.
	Transient bool `json:"transient,omitempty"`
}

// Execution is a successful run.
type Execution struct {
	Result   *task.Result  `json:"result"`
	Strategy Name          `json:"strategy"`
	Attempts []Attempt     `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// Options tune a single Execute call.
type Options struct {
	// Strategy is tried before the chain. Empty falls back to the task's
	// own requested strategy, if any.
	Strategy Name

	// Timeouts override the engine's per-strategy limits.
	Timeouts map[Name]time.Duration

	// OnChunk receives streamed output and makes streaming suitable.
	OnChunk task.ChunkFunc

	// AdapterName and AdapterVersion key performance feedback. They default
	// to the adapter's own Name and Version.
	AdapterName    string
	AdapterVersion string
}

// PerformanceRecorder receives the outcome of every execution.
type PerformanceRecorder interface {
	RecordPerformance(name, version string, o registry.Outcome)
}

// Engine runs the fallback chain. It is safe for concurrent use.
type Engine struct {
	order              []Name
	timeouts           map[Name]time.Duration
	batchSize          int
	chunkSize          int
	defaultConcurrency int

	logger   *zap.Logger
	bus      *event.Bus
	metrics  *metrics.Metrics
	recorder PerformanceRecorder
	stats    *statsTable
}

// Option configures an Engine.
type Option func(*Engine)

// WithOrder sets the fallback chain. Unknown names are dropped.
func WithOrder(order []Name) Option {
	return func(e *Engine) {
		var valid []Name
		for _, name := range order {
			if name.Valid() {
				valid = append(valid, name)
			}
		}
		if len(valid) > 0 {
			e.order = valid
		}
	}
}

// WithTimeouts overrides per-strategy limits.
func WithTimeouts(timeouts map[Name]time.Duration) Option {
	return func(e *Engine) {
		for name, d := range timeouts {
			if d > 0 {
				e.timeouts[name] = d
			}
		}
	}
}

// WithBatchSize sets the number of files per batch.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithStreamChunkSize sets the size of simulated stream chunks, in characters.
func WithStreamChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithDefaultConcurrency sets the parallel limit used when the adapter
// declares none.
func WithDefaultConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultConcurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(logger) }
}

// WithBus publishes strategy events to bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithMetrics records attempts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRecorder feeds execution outcomes back, usually to the registry.
func WithRecorder(r PerformanceRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine with the default chain and limits.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		order:              DefaultOrder(),
		timeouts:           DefaultTimeouts(),
		batchSize:          5,
		chunkSize:          1000,
		defaultConcurrency: 3,
		logger:             zap.NewNop(),
		stats:              newStatsTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Order returns the fallback chain.
func (e *Engine) Order() []Name {
	return append([]Name(nil), e.order...)
}

// Execute runs t on a. An explicit strategy is tried first and not again
// later. The chain then visits every strategy in order, skipping those the
// adapter lacks or the task does not need, and returns the first success.
//
// Each attempt races its time limit. A timed-out attempt is recorded as a
// failure but the adapter call is not cancelled: it keeps running with the
// caller's context and its result is discarded.
func (e *Engine) Execute(ctx context.Context, a adapter.Adapter, t *task.Task, opts Options) (*Execution, error) {
	if a == nil {
		return nil, fmt.Errorf("execute: nil adapter")
	}
	if t == nil {
		return nil, fmt.Errorf("execute: nil task")
	}

	start := time.Now()
	run := &run{engine: e, adapter: a, task: t, opts: opts}

	explicit := opts.Strategy
	if explicit == "" {
		explicit = Name(t.RequestedStrategy())
	}

	if explicit != "" {
		var err error
		switch {
		case !explicit.Valid():
			err = fmt.Errorf("%w %q", ErrUnknownStrategy, explicit)
		case !Available(explicit, a):
			err = fmt.Errorf("%w: %s on %s", ErrUnavailable, explicit, a.Name())
		}
		if err != nil {
			run.fail(explicit, err, 0)
		} else if res, ok := run.try(ctx, explicit); ok {
			return e.succeed(run, explicit, res, start), nil
		}
	}

	for _, name := range e.order {
		if ctx.Err() != nil {
			break
		}
		switch {
		case name == explicit:
			run.skip(name, "already attempted")
		case !Available(name, a):
			run.skip(name, fmt.Sprintf("not available on %s", a.Name()))
		case !Suitable(name, t, opts.OnChunk != nil):
			run.skip(name, "not suitable for task")
		default:
			if res, ok := run.try(ctx, name); ok {
				return e.succeed(run, name, res, start), nil
			}
		}
	}

	return nil, e.exhaust(ctx, run, start)
}

// Statistics returns per-strategy counters.
func (e *Engine) Statistics() map[Name]Stats {
	return e.stats.snapshot()
}

// ResetStatistics clears the counters.
func (e *Engine) ResetStatistics() {
	e.stats.reset()
}

func (e *Engine) succeed(r *run, name Name, res *task.Result, start time.Time) *Execution {
	elapsed := time.Since(start)
	e.recordOutcome(r, elapsed, false)
	e.logger.Debug("strategy succeeded",
		zap.String("task", r.task.ID),
		zap.String("adapter", r.adapter.Name()),
		zap.String("strategy", name.String()),
		zap.Int("attempts", len(r.attempts)),
		zap.Duration("elapsed", elapsed))
	e.bus.Publish(event.NewStrategySucceededEvent(r.task.ID, r.adapter.Name(), name.String(), elapsed, len(r.attempts)))

	return &Execution{
		Result:   res,
		Strategy: name,
		Attempts: r.attempts,
		Duration: elapsed,
	}
}

func (e *Engine) exhaust(ctx context.Context, r *run, start time.Time) error {
	elapsed := time.Since(start)
	e.recordOutcome(r, elapsed, true)

	err := &ExhaustedError{
		TaskID:   r.task.ID,
		Adapter:  r.adapter.Name(),
		Attempts: r.attempts,
		Duration: elapsed,
		Cause:    ctx.Err(),
	}
	e.logger.Error("all strategies failed",
		zap.String("task", r.task.ID),
		zap.String("adapter", r.adapter.Name()),
		zap.Int("attempts", len(r.attempts)),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
	e.bus.Publish(event.NewStrategiesExhaustedEvent(r.task.ID, r.adapter.Name(), len(r.attempts), elapsed))
	return err
}

func (e *Engine) recordOutcome(r *run, d time.Duration, failed bool) {
	if e.recorder == nil {
		return
	}
	name := r.opts.AdapterName
	if name == "" {
		name = r.adapter.Name()
	}
	version := r.opts.AdapterVersion
	if version == "" {
		version = r.adapter.Version()
	}
	e.recorder.RecordPerformance(name, version, registry.Outcome{Duration: d, Failed: failed})
}

func (e *Engine) timeout(name Name, opts Options) time.Duration {
	if d, ok := opts.Timeouts[name]; ok && d > 0 {
		return d
	}
	if d, ok := e.timeouts[name]; ok && d > 0 {
		return d
	}
	return DefaultTimeouts()[Sequential]
}

// run is the state of one Execute call.
type run struct {
	engine   *Engine
	adapter  adapter.Adapter
	task     *task.Task
	opts     Options
	attempts []Attempt
}

func (r *run) skip(name Name, reason string) {
	r.attempts = append(r.attempts, Attempt{Strategy: name, Status: StatusSkipped, Reason: reason})
	r.engine.stats.skip(name)
	r.engine.metrics.ObserveAttempt(name.String(), string(StatusSkipped), 0)
	r.engine.logger.Debug("strategy skipped",
		zap.String("task", r.task.ID),
		zap.String("strategy", name.String()),
		zap.String("reason", reason))
}

func (r *run) fail(name Name, err error, d time.Duration) {
	transient := adapter.IsTransient(err)
	r.attempts = append(r.attempts, Attempt{
		Strategy:  name,
		Status:    StatusFailed,
		Error:     err.Error(),
		Err:       err,
		Duration:  d,
		Transient: transient,
	})
	r.engine.stats.failure(name, d, failureReason(err))
	r.engine.metrics.ObserveAttempt(name.String(), string(StatusFailed), d)
	r.engine.logger.Warn("strategy failed",
		zap.String("task", r.task.ID),
		zap.String("adapter", r.adapter.Name()),
		zap.String("strategy", name.String()),
		zap.Duration("elapsed", d),
		zap.Bool("transient", transient),
		zap.Error(err))
	r.engine.bus.Publish(event.NewStrategyFailedEvent(r.task.ID, r.adapter.Name(), name.String(), err.Error(), d))
}

// try executes one strategy under its time limit.
func (r *run) try(ctx context.Context, name Name) (*task.Result, bool) {
	start := time.Now()
	limit := r.engine.timeout(name, r.opts)

	res, err := race(ctx, limit, func(ctx context.Context) (*task.Result, error) {
		return r.engine.dispatch(ctx, name, r.adapter, r.task, r.opts)
	})
	d := time.Since(start)
	if err == nil && res == nil {
		err = fmt.Errorf("%s returned no result", name)
	}
	if err != nil {
		r.fail(name, err, d)
		return nil, false
	}

	r.attempts = append(r.attempts, Attempt{Strategy: name, Status: StatusSuccess, Duration: d})
	r.engine.stats.success(name, d)
	r.engine.metrics.ObserveAttempt(name.String(), string(StatusSuccess), d)
	res.SetMeta("strategy", name.String())
	return res, true
}

func (e *Engine) dispatch(ctx context.Context, name Name, a adapter.Adapter, t *task.Task, opts Options) (*task.Result, error) {
	switch name {
	case SubAgents:
		return e.runSubAgents(ctx, a, t)
	case Parallel:
		return e.runParallel(ctx, a, t)
	case Streaming:
		return e.runStreaming(ctx, a, t, opts.OnChunk)
	case Batched:
		return e.runBatched(ctx, a, t)
	case Sequential:
		return a.ExecuteTask(ctx, t)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, name)
}

// race runs fn in its own goroutine and returns whichever comes first: its
// result, the time limit, or the end of ctx. fn is never cancelled by the
// time limit.
func race(ctx context.Context, limit time.Duration, fn func(context.Context) (*task.Result, error)) (*task.Result, error) {
	type outcome struct {
		res *task.Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("strategy panicked: %v", p)}
			}
		}()
		res, err := fn(ctx)
		done <- outcome{res: res, err: err}
	}()

	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.res, o.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrStrategyTimeout, limit)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrStrategyTimeout):
		return ErrStrategyTimeout.Error()
	case errors.Is(err, ErrUnavailable):
		return ErrUnavailable.Error()
	case errors.Is(err, adapter.ErrSubAgentsUnsupported):
		return adapter.ErrSubAgentsUnsupported.Error()
	}
	return err.Error()
}
