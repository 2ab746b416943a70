package config

import (
	"fmt"
	"time"

	"github.com/zen-systems/taskgate/pkg/strategy"
)

// RoutingConfig tunes requirement inference, adapter selection and the
// decision cache.
type RoutingConfig struct {
	CacheTTL            time.Duration       `yaml:"cache_ttl,omitempty" env:"TASKGATE_ROUTING_CACHE_TTL"`
	CacheMaxEntries     int                 `yaml:"cache_max_entries,omitempty" env:"TASKGATE_ROUTING_CACHE_MAX_ENTRIES"`
	CacheEvictCount     int                 `yaml:"cache_evict_count,omitempty" env:"TASKGATE_ROUTING_CACHE_EVICT_COUNT"`
	TokensPerFile       int                 `yaml:"tokens_per_file,omitempty" env:"TASKGATE_ROUTING_TOKENS_PER_FILE"`
	TaskFeatures        map[string][]string `yaml:"task_features,omitempty"`
	PreferredAdapters   []string            `yaml:"preferred_adapters,omitempty" env:"TASKGATE_PREFERRED_ADAPTERS" envSeparator:","`
	ConsiderPerformance *bool               `yaml:"consider_performance,omitempty" env:"TASKGATE_CONSIDER_PERFORMANCE"`
}

// StrategyConfig tunes the execution fallback chain.
type StrategyConfig struct {
	Order              []string                 `yaml:"order,omitempty" env:"TASKGATE_STRATEGY_ORDER" envSeparator:","`
	Timeouts           map[string]time.Duration `yaml:"timeouts,omitempty"`
	BatchSize          int                      `yaml:"batch_size,omitempty" env:"TASKGATE_STRATEGY_BATCH_SIZE"`
	StreamChunkSize    int                      `yaml:"stream_chunk_size,omitempty" env:"TASKGATE_STRATEGY_STREAM_CHUNK_SIZE"`
	DefaultConcurrency int                      `yaml:"default_concurrency,omitempty" env:"TASKGATE_STRATEGY_DEFAULT_CONCURRENCY"`
}

// DefaultTaskFeatures maps task types to the features they require.
func DefaultTaskFeatures() map[string][]string {
	return map[string][]string{
		"generation":    {"generation", "refactoring"},
		"refactoring":   {"refactoring", "analysis"},
		"testing":       {"testing", "generation"},
		"validation":    {"validation", "analysis"},
		"analysis":      {"analysis"},
		"documentation": {"documentation"},
		"debugging":     {"debugging", "analysis"},
	}
}

// Names returns the configured order as strategy names.
func (s StrategyConfig) Names() []strategy.Name {
	out := make([]strategy.Name, 0, len(s.Order))
	for _, name := range s.Order {
		out = append(out, strategy.Name(name))
	}
	return out
}

// TimeoutsByName returns the configured timeouts keyed by strategy.
func (s StrategyConfig) TimeoutsByName() map[strategy.Name]time.Duration {
	out := make(map[strategy.Name]time.Duration, len(s.Timeouts))
	for name, d := range s.Timeouts {
		out[strategy.Name(name)] = d
	}
	return out
}

func applyRoutingDefaults(cfg *RoutingConfig) {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheMaxEntries == 0 {
		cfg.CacheMaxEntries = 1000
	}
	if cfg.CacheEvictCount == 0 {
		cfg.CacheEvictCount = 100
	}
	if cfg.TokensPerFile == 0 {
		cfg.TokensPerFile = 2000
	}
	if cfg.TaskFeatures == nil {
		cfg.TaskFeatures = DefaultTaskFeatures()
	}
	if cfg.ConsiderPerformance == nil {
		enabled := true
		cfg.ConsiderPerformance = &enabled
	}
}

func applyStrategyDefaults(cfg *StrategyConfig) {
	if len(cfg.Order) == 0 {
		for _, name := range strategy.DefaultOrder() {
			cfg.Order = append(cfg.Order, name.String())
		}
	}
	defaults := strategy.DefaultTimeouts()
	if cfg.Timeouts == nil {
		cfg.Timeouts = make(map[string]time.Duration, len(defaults))
	}
	for name, d := range defaults {
		if _, ok := cfg.Timeouts[name.String()]; !ok {
			cfg.Timeouts[name.String()] = d
		}
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5
	}
	if cfg.StreamChunkSize == 0 {
		cfg.StreamChunkSize = 1000
	}
	if cfg.DefaultConcurrency == 0 {
		cfg.DefaultConcurrency = 3
	}
}

func (cfg RoutingConfig) validate() []error {
	var errs []error
	if cfg.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("routing.cache_ttl must not be negative"))
	}
	if cfg.CacheEvictCount > cfg.CacheMaxEntries {
		errs = append(errs, fmt.Errorf("routing.cache_evict_count (%d) exceeds cache_max_entries (%d)", cfg.CacheEvictCount, cfg.CacheMaxEntries))
	}
	return errs
}

func (cfg StrategyConfig) validate() []error {
	var errs []error
	seen := make(map[string]bool)
	for _, name := range cfg.Order {
		if !strategy.Name(name).Valid() {
			errs = append(errs, fmt.Errorf("strategy.order: unknown strategy %q", name))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("strategy.order: %q listed twice", name))
		}
		seen[name] = true
	}
	for name, d := range cfg.Timeouts {
		if !strategy.Name(name).Valid() {
			errs = append(errs, fmt.Errorf("strategy.timeouts: unknown strategy %q", name))
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("strategy.timeouts.%s must be positive", name))
		}
	}
	if cfg.BatchSize < 0 || cfg.StreamChunkSize < 0 || cfg.DefaultConcurrency < 0 {
		errs = append(errs, fmt.Errorf("strategy sizes must not be negative"))
	}
	return errs
}

// WithDefaults returns a copy with unset fields defaulted.
func (cfg RoutingConfig) WithDefaults() RoutingConfig {
	applyRoutingDefaults(&cfg)
	return cfg
}

// WithDefaults returns a copy with unset fields defaulted.
func (cfg StrategyConfig) WithDefaults() StrategyConfig {
	applyStrategyDefaults(&cfg)
	return cfg
}
