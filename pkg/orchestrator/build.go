package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/config"
	"github.com/zen-systems/taskgate/pkg/event"
	"github.com/zen-systems/taskgate/pkg/logging"
	"github.com/zen-systems/taskgate/pkg/metrics"
	"github.com/zen-systems/taskgate/pkg/registry"
	"github.com/zen-systems/taskgate/pkg/router"
	"github.com/zen-systems/taskgate/pkg/strategy"
)

// Deps are the shared collaborators threaded through every component.
type Deps struct {
	Logger  *zap.Logger
	Bus     *event.Bus
	Metrics *metrics.Metrics
}

// AdapterFactory builds an adapter for a configured provider.
type AdapterFactory func(ctx context.Context, provider string, cfg adapter.ProviderConfig) (adapter.Adapter, error)

// FromConfig assembles a Service from configuration. Adapters whose
// provider has no credentials are skipped with a warning. A nil factory
// uses adapter.New.
func FromConfig(ctx context.Context, cfg *config.Config, deps Deps, factory AdapterFactory) (*Service, error) {
	logger := logging.OrNop(deps.Logger)
	if factory == nil {
		factory = adapter.New
	}

	reg := registry.New(
		registry.WithLogger(logger.Named("registry")),
		registry.WithBus(deps.Bus),
		registry.WithMetrics(deps.Metrics),
	)

	registered := 0
	for _, ac := range cfg.Adapters {
		if !ac.HasCredentials(cfg.APIKeys) {
			logger.Warn("skipping adapter without credentials",
				zap.String("adapter", ac.Name),
				zap.String("provider", ac.Provider))
			continue
		}
		a, err := factory(ctx, ac.Provider, ac.ProviderConfig(cfg.APIKeys))
		if err != nil {
			return nil, fmt.Errorf("failed to create adapter %s: %w", ac.Name, err)
		}
		if err := reg.Register(ac.Name, a, registry.WithVersion(ac.Version), registry.AsDefault(ac.IsDefault())); err != nil {
			return nil, err
		}
		registered++
	}
	if registered == 0 {
		return nil, fmt.Errorf("no adapters available: configure at least one adapter with credentials")
	}

	sc := cfg.Strategy.WithDefaults()
	order := sc.Names()

	engine := strategy.NewEngine(
		strategy.WithOrder(order),
		strategy.WithTimeouts(sc.TimeoutsByName()),
		strategy.WithBatchSize(sc.BatchSize),
		strategy.WithStreamChunkSize(sc.StreamChunkSize),
		strategy.WithDefaultConcurrency(sc.DefaultConcurrency),
		strategy.WithLogger(logger.Named("strategy")),
		strategy.WithBus(deps.Bus),
		strategy.WithMetrics(deps.Metrics),
		strategy.WithRecorder(reg),
	)

	rt := router.New(reg, cfg.Routing,
		router.WithLogger(logger.Named("router")),
		router.WithBus(deps.Bus),
		router.WithMetrics(deps.Metrics),
		router.WithStrategyOrder(engine.Order()),
	)

	return New(reg, rt, engine, WithLogger(logger)), nil
}
