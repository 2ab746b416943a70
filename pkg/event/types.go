// Package event defines lifecycle notifications emitted by the registry,
// router and strategy engine, and the bus that delivers them.
package event

import "time"

// Event types follow the "category.action" convention.
const (
	TypeAdapterRegistered   = "adapter.registered"
	TypeDefaultChanged      = "adapter.default_changed"
	TypeAdapterUnregistered = "adapter.unregistered"
	TypeCapabilityChanged   = "capability.changed"
	TypeRouted              = "route.decided"
	TypeCacheHit            = "route.cache_hit"
	TypeStrategySucceeded   = "strategy.succeeded"
	TypeStrategyFailed      = "strategy.failed"
	TypeStrategiesExhausted = "strategy.exhausted"
	TypeBatchProgress       = "strategy.batch_progress"
)

// Event is implemented by every notification.
type Event interface {
	EventType() string
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// -----------------------------------------------------------------------------
// Registry events
// -----------------------------------------------------------------------------

// AdapterRegisteredEvent is emitted when an adapter version is registered.
type AdapterRegisteredEvent struct {
	baseEvent
	Name      string
	Version   string
	IsDefault bool
}

func NewAdapterRegisteredEvent(name, version string, isDefault bool) AdapterRegisteredEvent {
	return AdapterRegisteredEvent{
		baseEvent: newBaseEvent(TypeAdapterRegistered),
		Name:      name,
		Version:   version,
		IsDefault: isDefault,
	}
}

// DefaultChangedEvent is emitted when the default version of a name moves.
type DefaultChangedEvent struct {
	baseEvent
	Name       string
	OldVersion string // empty for the first registration
	NewVersion string
}

func NewDefaultChangedEvent(name, oldVersion, newVersion string) DefaultChangedEvent {
	return DefaultChangedEvent{
		baseEvent:  newBaseEvent(TypeDefaultChanged),
		Name:       name,
		OldVersion: oldVersion,
		NewVersion: newVersion,
	}
}

// AdapterUnregisteredEvent is emitted when an adapter version is removed.
type AdapterUnregisteredEvent struct {
	baseEvent
	Name    string
	Version string
}

func NewAdapterUnregisteredEvent(name, version string) AdapterUnregisteredEvent {
	return AdapterUnregisteredEvent{
		baseEvent: newBaseEvent(TypeAdapterUnregistered),
		Name:      name,
		Version:   version,
	}
}

// CapabilityChangedEvent is emitted before a new capability profile becomes visible.
type CapabilityChangedEvent struct {
	baseEvent
	Adapter    string
	Version    string
	Capability string
	OldValue   any
	NewValue   any
}

func NewCapabilityChangedEvent(adapter, version, capability string, oldValue, newValue any) CapabilityChangedEvent {
	return CapabilityChangedEvent{
		baseEvent:  newBaseEvent(TypeCapabilityChanged),
		Adapter:    adapter,
		Version:    version,
		Capability: capability,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
}

// -----------------------------------------------------------------------------
// Routing events
// -----------------------------------------------------------------------------

// RoutedEvent is emitted when a fresh routing decision is made.
type RoutedEvent struct {
	baseEvent
	TaskID     string
	DecisionID string
	Adapter    string
	Version    string
	Strategy   string
	Score      float64
}

func NewRoutedEvent(taskID, decisionID, adapter, version, strategy string, score float64) RoutedEvent {
	return RoutedEvent{
		baseEvent:  newBaseEvent(TypeRouted),
		TaskID:     taskID,
		DecisionID: decisionID,
		Adapter:    adapter,
		Version:    version,
		Strategy:   strategy,
		Score:      score,
	}
}

// CacheHitEvent is emitted when a cached decision is reused.
type CacheHitEvent struct {
	baseEvent
	TaskID     string
	DecisionID string
	Key        string
}

func NewCacheHitEvent(taskID, decisionID, key string) CacheHitEvent {
	return CacheHitEvent{
		baseEvent:  newBaseEvent(TypeCacheHit),
		TaskID:     taskID,
		DecisionID: decisionID,
		Key:        key,
	}
}

// -----------------------------------------------------------------------------
// Strategy events
// -----------------------------------------------------------------------------

// StrategySucceededEvent is emitted when a strategy produces a result.
type StrategySucceededEvent struct {
	baseEvent
	TaskID   string
	Adapter  string
	Strategy string
	Duration time.Duration
	Attempts int // attempts recorded so far, including skips
}

func NewStrategySucceededEvent(taskID, adapter, strategy string, d time.Duration, attempts int) StrategySucceededEvent {
	return StrategySucceededEvent{
		baseEvent: newBaseEvent(TypeStrategySucceeded),
		TaskID:    taskID,
		Adapter:   adapter,
		Strategy:  strategy,
		Duration:  d,
		Attempts:  attempts,
	}
}

// StrategyFailedEvent is emitted when a strategy attempt fails.
type StrategyFailedEvent struct {
	baseEvent
	TaskID   string
	Adapter  string
	Strategy string
	Error    string
	Duration time.Duration
}

func NewStrategyFailedEvent(taskID, adapter, strategy, errMsg string, d time.Duration) StrategyFailedEvent {
	return StrategyFailedEvent{
		baseEvent: newBaseEvent(TypeStrategyFailed),
		TaskID:    taskID,
		Adapter:   adapter,
		Strategy:  strategy,
		Error:     errMsg,
		Duration:  d,
	}
}

// StrategiesExhaustedEvent is emitted when no strategy succeeded.
type StrategiesExhaustedEvent struct {
	baseEvent
	TaskID   string
	Adapter  string
	Attempts int
	Duration time.Duration
}

func NewStrategiesExhaustedEvent(taskID, adapter string, attempts int, d time.Duration) StrategiesExhaustedEvent {
	return StrategiesExhaustedEvent{
		baseEvent: newBaseEvent(TypeStrategiesExhausted),
		TaskID:    taskID,
		Adapter:   adapter,
		Attempts:  attempts,
		Duration:  d,
	}
}

// BatchProgressEvent is emitted after each chunk of a batched execution.
type BatchProgressEvent struct {
	baseEvent
	TaskID    string
	Completed int
	Total     int
	Progress  float64
}

func NewBatchProgressEvent(taskID string, completed, total int) BatchProgressEvent {
	progress := 0.0
	if total > 0 {
		progress = float64(completed) / float64(total)
	}
	return BatchProgressEvent{
		baseEvent: newBaseEvent(TypeBatchProgress),
		TaskID:    taskID,
		Completed: completed,
		Total:     total,
		Progress:  progress,
	}
}
