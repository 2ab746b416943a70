// Package registry keeps every registered adapter version, picks the best
// match for a set of requirements and tracks per-version performance.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/event"
	"github.com/zen-systems/taskgate/pkg/logging"
	"github.com/zen-systems/taskgate/pkg/metrics"
)

var (
	// ErrInvalidRegistration is returned for an empty name or nil adapter.
	ErrInvalidRegistration = errors.New("invalid adapter registration")

	// ErrVersionNotFound is returned when a named version is not registered.
	ErrVersionNotFound = errors.New("adapter version not found")
)

// Entry is one registered adapter version.
type Entry struct {
	Name      string
	Version   string
	Adapter   adapter.Adapter
	IsDefault bool
}

// Descriptor summarizes a registered version for listings.
type Descriptor struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	IsDefault    bool                `json:"isDefault"`
	Capabilities *capability.Profile `json:"capabilities"`
}

type entry struct {
	adapter adapter.Adapter

	// unsubscribe removes the capability observer installed for this
	// registration. Guarded by Registry.mu.
	unsubscribe func()
}

// Registry holds adapters keyed by name, then version.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]map[string]*entry
	defaults map[string]string
	perf     map[perfKey]*PerformanceRecord

	logger  *zap.Logger
	bus     *event.Bus
	metrics *metrics.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) { r.logger = logging.OrNop(logger) }
}

// WithBus publishes registry events to bus.
func WithBus(bus *event.Bus) Option {
	return func(r *Registry) { r.bus = bus }
}

// WithMetrics records adapter executions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		adapters: make(map[string]map[string]*entry),
		defaults: make(map[string]string),
		perf:     make(map[perfKey]*PerformanceRecord),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type registerOptions struct {
	version   string
	isDefault bool
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

// WithVersion registers under v instead of the adapter's own Version().
func WithVersion(v string) RegisterOption {
	return func(o *registerOptions) { o.version = v }
}

// AsDefault controls whether the registered version becomes the default
// for its name. Registrations are default unless told otherwise; the first
// version of a name is always the default.
func AsDefault(isDefault bool) RegisterOption {
	return func(o *registerOptions) { o.isDefault = isDefault }
}

// Register adds an adapter version. Registering an existing name and
// version replaces it.
func (r *Registry) Register(name string, a adapter.Adapter, opts ...RegisterOption) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRegistration)
	}
	if a == nil {
		return fmt.Errorf("%w: nil adapter for %q", ErrInvalidRegistration, name)
	}

	o := registerOptions{version: a.Version(), isDefault: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.version == "" {
		o.version = "1.0.0"
	}

	e := &entry{adapter: a}

	r.mu.Lock()
	versions, ok := r.adapters[name]
	if !ok {
		versions = make(map[string]*entry)
		r.adapters[name] = versions
	}
	replaced := versions[o.version]
	versions[o.version] = e

	oldDefault, hadDefault := r.defaults[name]
	makeDefault := o.isDefault || !hadDefault
	if makeDefault {
		r.defaults[name] = o.version
	}
	var staleHook func()
	if replaced != nil {
		staleHook, replaced.unsubscribe = replaced.unsubscribe, nil
	}
	r.mu.Unlock()

	if staleHook != nil {
		staleHook()
	}

	if n, ok := a.(adapter.CapabilityNotifier); ok {
		version := o.version
		unsubscribe := n.OnCapabilityChange(func(c capability.Change) {
			if !r.isCurrent(name, version, e) {
				return
			}
			r.logger.Info("adapter capability changed",
				zap.String("adapter", name),
				zap.String("version", version),
				zap.String("capability", c.Capability))
			r.bus.Publish(event.NewCapabilityChangedEvent(name, version, c.Capability, c.OldValue, c.NewValue))
		})
		r.attachHook(name, version, e, unsubscribe)
	}

	r.logger.Debug("adapter registered",
		zap.String("adapter", name),
		zap.String("version", o.version),
		zap.Bool("default", makeDefault))
	r.bus.Publish(event.NewAdapterRegisteredEvent(name, o.version, makeDefault))
	if makeDefault && oldDefault != o.version {
		r.bus.Publish(event.NewDefaultChangedEvent(name, oldDefault, o.version))
	}
	return nil
}

// Get returns a registered version. An empty version means the default.
func (r *Registry) Get(name, version string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if version == "" {
		version = r.defaults[name]
	}
	e, ok := r.adapters[name][version]
	if !ok {
		return Entry{}, false
	}
	return r.entryLocked(name, version, e), true
}

// GetLatest returns the highest semantic version registered under name.
func (r *Registry) GetLatest(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.adapters[name]
	if len(versions) == 0 {
		return Entry{}, false
	}
	latest := latestVersion(versions)
	return r.entryLocked(name, latest, versions[latest]), true
}

// SetDefault makes version the default for name.
func (r *Registry) SetDefault(name, version string) error {
	r.mu.Lock()
	if _, ok := r.adapters[name][version]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s@%s", ErrVersionNotFound, name, version)
	}
	old := r.defaults[name]
	r.defaults[name] = version
	r.mu.Unlock()

	if old != version {
		r.logger.Info("default adapter version changed",
			zap.String("adapter", name),
			zap.String("from", old),
			zap.String("to", version))
		r.bus.Publish(event.NewDefaultChangedEvent(name, old, version))
	}
	return nil
}

// Unregister removes a version. When it was the default, the latest
// remaining version takes over. Performance history is kept.
func (r *Registry) Unregister(name, version string) bool {
	r.mu.Lock()
	versions := r.adapters[name]
	removed, ok := versions[version]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(versions, version)
	hook := removed.unsubscribe
	removed.unsubscribe = nil

	newDefault := ""
	wasDefault := r.defaults[name] == version
	switch {
	case len(versions) == 0:
		delete(r.adapters, name)
		delete(r.defaults, name)
	case wasDefault:
		newDefault = latestVersion(versions)
		r.defaults[name] = newDefault
	}
	r.mu.Unlock()

	if hook != nil {
		hook()
	}

	r.logger.Info("adapter unregistered", zap.String("adapter", name), zap.String("version", version))
	r.bus.Publish(event.NewAdapterUnregisteredEvent(name, version))
	if newDefault != "" {
		r.bus.Publish(event.NewDefaultChangedEvent(name, version, newDefault))
	}
	return true
}

// List describes every registered version, sorted by name then version.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for _, e := range r.entriesLocked() {
		out = append(out, Descriptor{
			Name:         e.Name,
			Version:      e.Version,
			IsDefault:    e.IsDefault,
			Capabilities: e.Adapter.Capabilities(),
		})
	}
	return out
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// attachHook stores unsubscribe on e, or runs it when e was replaced or
// removed while the observer was being installed.
func (r *Registry) attachHook(name, version string, e *entry, unsubscribe func()) {
	r.mu.Lock()
	current := r.adapters[name][version] == e
	if current {
		e.unsubscribe = unsubscribe
	}
	r.mu.Unlock()
	if !current && unsubscribe != nil {
		unsubscribe()
	}
}

func (r *Registry) isCurrent(name, version string, e *entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[name][version] == e
}

func (r *Registry) entryLocked(name, version string, e *entry) Entry {
	return Entry{
		Name:      name,
		Version:   version,
		Adapter:   e.adapter,
		IsDefault: r.defaults[name] == version,
	}
}

// entriesLocked returns every entry ordered by name, then version descending.
func (r *Registry) entriesLocked() []Entry {
	var out []Entry
	for name, versions := range r.adapters {
		for version, e := range versions {
			out = append(out, r.entryLocked(name, version, e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return compareVersions(out[i].Version, out[j].Version) > 0
	})
	return out
}
