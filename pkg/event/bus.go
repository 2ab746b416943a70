package event

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

const wildcard = "*"

// Handler handles an event.
type Handler func(Event)

type subscription struct {
	id      string
	handler Handler
}

// subscriberMap is replaced wholesale on every change and never mutated.
type subscriberMap map[string][]subscription

// Bus is a synchronous pub-sub bus. Each event type gets one dispatcher on
// the underlying EventBus; subscriptions are tracked here so they can be
// removed by ID. Handlers run on the publishing goroutine and must not
// publish or subscribe re-entrantly.
//
// Dispatchers run under the EventBus lock, so they read the subscriber
// snapshot without taking mu.
type Bus struct {
	bus    evbus.Bus
	logger *zap.Logger

	mu     sync.Mutex // serializes writers of subs and topics
	subs   atomic.Pointer[subscriberMap]
	topics map[string]bool
	nextID atomic.Uint64
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler panics.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		bus:    evbus.New(),
		logger: zap.NewNop(),
		topics: make(map[string]bool),
	}
	b.subs.Store(&subscriberMap{})
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for one event type and returns its ID.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	next := b.cloneSubs()
	next[eventType] = append(next[eventType], subscription{id: id, handler: handler})
	b.subs.Store(&next)

	if !b.topics[eventType] {
		topic := eventType
		if err := b.bus.Subscribe(topic, func(e Event) { b.dispatch(topic, e) }); err != nil {
			b.logger.Warn("event dispatcher registration failed", zap.String("topic", topic), zap.Error(err))
		} else {
			b.topics[topic] = true
		}
	}
	return id
}

// SubscribeAll registers a handler for every event type. Wildcard handlers
// run after the type-specific ones.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription by ID.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range *b.subs.Load() {
		for i, sub := range subs {
			if sub.id == id {
				next := b.cloneSubs()
				next[eventType] = append(subs[:i:i], subs[i+1:]...)
				b.subs.Store(&next)
				return true
			}
		}
	}
	return false
}

// Publish delivers e to its subscribers. Publishing on a nil Bus is a no-op.
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}
	b.bus.Publish(e.EventType(), e)
	b.bus.Publish(wildcard, e)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	count := 0
	for _, subs := range *b.subs.Load() {
		count += len(subs)
	}
	return count
}

// cloneSubs copies the current snapshot. Slices are shared; writers must
// not append in place, only replace.
func (b *Bus) cloneSubs() subscriberMap {
	cur := *b.subs.Load()
	next := make(subscriberMap, len(cur)+1)
	for k, v := range cur {
		next[k] = v[:len(v):len(v)]
	}
	return next
}

func (b *Bus) dispatch(topic string, e Event) {
	for _, sub := range (*b.subs.Load())[topic] {
		b.safeCall(sub.handler, e)
	}
}

func (b *Bus) safeCall(handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", e.EventType()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	handler(e)
}
