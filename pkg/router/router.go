// Package router turns tasks into routing decisions: which adapter version
// should run a task and with which execution strategy.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/config"
	"github.com/zen-systems/taskgate/pkg/event"
	"github.com/zen-systems/taskgate/pkg/logging"
	"github.com/zen-systems/taskgate/pkg/metrics"
	"github.com/zen-systems/taskgate/pkg/registry"
	"github.com/zen-systems/taskgate/pkg/strategy"
	"github.com/zen-systems/taskgate/pkg/task"
)

// ErrNoSuitableAdapter is returned when no registered adapter satisfies a
// task's requirements.
var ErrNoSuitableAdapter = errors.New("no suitable adapter")

const contextBucket = 1000

// Statistics summarizes router activity.
type Statistics struct {
	TotalRoutes int            `json:"totalRoutes"`
	CacheHits   int            `json:"cacheHits"`
	CacheMisses int            `json:"cacheMisses"`
	HitRate     float64        `json:"hitRate"`
	CacheSize   int            `json:"cacheSize"`
	Evictions   int            `json:"evictions"`
	ByAdapter   map[string]int `json:"byAdapter"`
	ByStrategy  map[string]int `json:"byStrategy"`
}

// Router picks adapters through a registry and caches its decisions.
type Router struct {
	registry *registry.Registry
	cfg      config.RoutingConfig
	order    []strategy.Name

	logger  *zap.Logger
	bus     *event.Bus
	metrics *metrics.Metrics
	now     func() time.Time

	mu         sync.Mutex
	cache      map[string]*Decision
	hits       int
	misses     int
	evictions  int
	byAdapter  map[string]int
	byStrategy map[string]int
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) { r.logger = logging.OrNop(logger) }
}

// WithBus publishes routing events to bus.
func WithBus(bus *event.Bus) Option {
	return func(r *Router) { r.bus = bus }
}

// WithMetrics records cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithStrategyOrder sets the order strategies are considered in. It should
// match the engine's order.
func WithStrategyOrder(order []strategy.Name) Option {
	return func(r *Router) {
		if len(order) > 0 {
			r.order = append([]strategy.Name(nil), order...)
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a router over reg. Zero config fields take their defaults.
func New(reg *registry.Registry, cfg config.RoutingConfig, opts ...Option) *Router {
	r := &Router{
		registry:   reg,
		cfg:        cfg.WithDefaults(),
		order:      strategy.DefaultOrder(),
		logger:     zap.NewNop(),
		now:        time.Now,
		cache:      make(map[string]*Decision),
		byAdapter:  make(map[string]int),
		byStrategy: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns the decision for t. Tasks with the same normalized
// requirements share a cached decision until it expires; a hit returns the
// identical *Decision.
func (r *Router) Route(ctx context.Context, t *task.Task) (*Decision, error) {
	if t == nil {
		return nil, fmt.Errorf("route: nil task")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := r.InferRequirements(t)
	explicit := strategy.Name(t.RequestedStrategy())
	key := cacheKey(req, explicit)

	if d, ok := r.lookup(key); ok {
		r.logger.Debug("routing cache hit",
			zap.String("task", t.ID),
			zap.String("decision", d.ID),
			zap.String("key", key))
		r.bus.Publish(event.NewCacheHitEvent(t.ID, d.ID, key))
		return d, nil
	}

	match, ok := r.registry.SelectOptimal(req, registry.Preferences{
		PreferredAdapters:   r.cfg.PreferredAdapters,
		ConsiderPerformance: r.cfg.ConsiderPerformance != nil && *r.cfg.ConsiderPerformance,
	})
	if !ok {
		return nil, fmt.Errorf("%w for task %s (%s)", ErrNoSuitableAdapter, t.ID, req)
	}

	d := &Decision{
		ID:             uuid.NewString(),
		TaskID:         t.ID,
		Adapter:        match.Adapter,
		AdapterName:    match.Name,
		AdapterVersion: match.Version,
		Strategy:       r.chooseStrategy(match.Adapter, t, explicit),
		Requirements:   req,
		Score:          match.Score,
		Candidates:     r.candidates(req),
		Timestamp:      r.now(),
	}
	r.store(key, d)

	r.logger.Debug("task routed",
		zap.String("task", t.ID),
		zap.String("decision", d.ID),
		zap.String("adapter", d.AdapterName),
		zap.String("version", d.AdapterVersion),
		zap.String("strategy", d.Strategy.String()),
		zap.Float64("score", d.Score))
	r.bus.Publish(event.NewRoutedEvent(t.ID, d.ID, d.AdapterName, d.AdapterVersion, d.Strategy.String(), d.Score))
	return d, nil
}

// chooseStrategy honors an explicit request, then takes the first strategy
// the adapter has and the task needs, and falls back to sequential.
func (r *Router) chooseStrategy(a adapter.Adapter, t *task.Task, explicit strategy.Name) strategy.Name {
	if explicit != "" {
		if explicit.Valid() {
			return explicit
		}
		r.logger.Warn("ignoring unknown strategy override",
			zap.String("task", t.ID),
			zap.String("strategy", explicit.String()))
	}
	for _, name := range r.order {
		if strategy.Available(name, a) && strategy.Suitable(name, t, false) {
			return name
		}
	}
	return strategy.Sequential
}

func (r *Router) candidates(req capability.Requirements) []Candidate {
	matches := r.registry.FindMatching(req)
	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, Candidate{Adapter: m.Name, Version: m.Version, Score: m.Score, Qualified: m.Qualified})
	}
	return out
}

// Statistics returns routing counters.
func (r *Router) Statistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Statistics{
		TotalRoutes: r.hits + r.misses,
		CacheHits:   r.hits,
		CacheMisses: r.misses,
		CacheSize:   len(r.cache),
		Evictions:   r.evictions,
		ByAdapter:   make(map[string]int, len(r.byAdapter)),
		ByStrategy:  make(map[string]int, len(r.byStrategy)),
	}
	if stats.TotalRoutes > 0 {
		stats.HitRate = float64(r.hits) / float64(stats.TotalRoutes)
	}
	for k, v := range r.byAdapter {
		stats.ByAdapter[k] = v
	}
	for k, v := range r.byStrategy {
		stats.ByStrategy[k] = v
	}
	return stats
}

// ClearCache drops every cached decision. Counters are kept.
func (r *Router) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]*Decision)
	r.mu.Unlock()
	r.metrics.SetCacheEntries(0)
}

func (r *Router) lookup(key string) (*Decision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.cache[key]
	if ok && r.now().Sub(d.Timestamp) >= r.cfg.CacheTTL {
		delete(r.cache, key)
		ok = false
	}
	if ok {
		r.hits++
		r.count(d)
	} else {
		r.misses++
	}
	r.metrics.ObserveRoute(ok)
	return d, ok
}

func (r *Router) store(key string, d *Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache[key] = d
	r.count(d)
	if len(r.cache) > r.cfg.CacheMaxEntries {
		r.evictOldestLocked(r.cfg.CacheEvictCount)
	}
	r.metrics.SetCacheEntries(len(r.cache))
}

func (r *Router) count(d *Decision) {
	r.byAdapter[d.AdapterName]++
	r.byStrategy[d.Strategy.String()]++
}

// evictOldestLocked removes the n oldest decisions.
func (r *Router) evictOldestLocked(n int) {
	type aged struct {
		key string
		at  time.Time
	}
	entries := make([]aged, 0, len(r.cache))
	for k, d := range r.cache {
		entries = append(entries, aged{key: k, at: d.Timestamp})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(r.cache, e.key)
	}
	r.evictions += n
	r.logger.Debug("routing cache evicted", zap.Int("entries", n), zap.Int("remaining", len(r.cache)))
}

// cacheKey is independent of task identity. Context is bucketed to the
// nearest thousand tokens.
func cacheKey(req capability.Requirements, explicit strategy.Name) string {
	n := req.Normalize()
	bucket := (n.MinContextTokens + contextBucket/2) / contextBucket * contextBucket
	return strings.Join([]string{
		"f=" + strings.Join(n.Features, ","),
		"c=" + strconv.Itoa(bucket),
		"l=" + strings.Join(n.Languages, ","),
		"m=" + strconv.FormatBool(n.MultiFile),
		"s=" + strconv.FormatBool(n.Streaming),
		"a=" + strconv.FormatBool(n.SubAgents),
		"x=" + string(explicit),
	}, "|")
}
