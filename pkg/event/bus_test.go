package event

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(TypeAdapterRegistered, func(e Event) { got = append(got, e) })

	bus.Publish(NewAdapterRegisteredEvent("mock", "1.0.0", true))
	bus.Publish(NewAdapterUnregisteredEvent("mock", "1.0.0"))

	require.Len(t, got, 1)
	registered, ok := got[0].(AdapterRegisteredEvent)
	require.True(t, ok)
	assert.Equal(t, "mock", registered.Name)
	assert.True(t, registered.IsDefault)
	assert.False(t, registered.Timestamp().IsZero())
}

func TestBusWildcardRunsAfterSpecific(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all:"+e.EventType()) })
	bus.Subscribe(TypeCacheHit, func(e Event) { order = append(order, "specific") })

	bus.Publish(NewCacheHitEvent("t1", "d1", "k"))

	assert.Equal(t, []string{"specific", "all:" + TypeCacheHit}, order)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	first := bus.Subscribe(TypeRouted, func(Event) { calls++ })
	bus.Subscribe(TypeRouted, func(Event) { calls += 10 })
	assert.Equal(t, 2, bus.SubscriptionCount())

	assert.True(t, bus.Unsubscribe(first))
	assert.False(t, bus.Unsubscribe(first))

	bus.Publish(NewRoutedEvent("t", "d", "mock", "1.0.0", "sequential", 5))
	assert.Equal(t, 10, calls)
	assert.Equal(t, 1, bus.SubscriptionCount())
}

func TestBusRecoversFromPanics(t *testing.T) {
	bus := NewBus()

	called := false
	bus.Subscribe(TypeStrategyFailed, func(Event) { panic("boom") })
	bus.Subscribe(TypeStrategyFailed, func(Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Publish(NewStrategyFailedEvent("t", "mock", "parallel", "err", 0))
	})
	assert.True(t, called)
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(NewBatchProgressEvent("t", 1, 2)) })
}

func TestBatchProgressEvent(t *testing.T) {
	e := NewBatchProgressEvent("t", 2, 5)
	assert.InDelta(t, 0.4, e.Progress, 1e-9)
	assert.Zero(t, NewBatchProgressEvent("t", 0, 0).Progress)
}

func TestBusConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var delivered atomic.Int64
	bus.SubscribeAll(func(Event) { delivered.Add(1) })
	bus.Subscribe(TypeBatchProgress, func(Event) {})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		bus.Publish(NewBatchProgressEvent("t1", 0, 2))
		for {
			select {
			case <-stop:
				return
			default:
				bus.Publish(NewBatchProgressEvent("t1", 1, 2))
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			id := bus.Subscribe(fmt.Sprintf("topic.%d", i), func(Event) {})
			if i%2 == 0 {
				bus.Unsubscribe(id)
			}
		}
		close(stop)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publish and subscribe blocked each other")
	}

	assert.Positive(t, delivered.Load())
	assert.Equal(t, 2+250, bus.SubscriptionCount())
}
