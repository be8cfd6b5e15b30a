// Package events publishes order lifecycle responses to in-process
// subscribers and, optionally, to Kafka.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler handles an event. It should be fast; a panic is recovered and logged.
type Handler func(Event)

// Bus is the interface for publishing and subscribing to lifecycle events
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(topic string, handler Handler)
	Close() error
}

// Metrics counts bus activity
type Metrics struct {
	Published int64
	Delivered int64
	Failed    int64
}

// InMemoryBus fans events out to subscribers, one goroutine per delivery.
type InMemoryBus struct {
	logger *zap.Logger
	mu     sync.RWMutex
	subs   map[string][]Handler
	wg     sync.WaitGroup

	published atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// NewInMemoryBus creates a new in-memory event bus
func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		logger: logger.Named("event-bus"),
		subs:   make(map[string][]Handler),
	}
}

// Publish delivers an event to all subscribers of the topic
func (bus *InMemoryBus) Publish(_ context.Context, event Event) error {
	bus.published.Add(1)
	bus.mu.RLock()
	handlers := append([]Handler{}, bus.subs[event.Topic]...)
	bus.mu.RUnlock()
	if len(handlers) == 0 {
		bus.logger.Debug("No subscribers for event",
			zap.String("topic", event.Topic),
			zap.String("type", event.Type),
		)
		return nil
	}
	for _, handler := range handlers {
		bus.wg.Add(1)
		go func(h Handler) {
			defer bus.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					bus.logger.Error("Event handler panic",
						zap.Any("recover", r),
						zap.String("topic", event.Topic),
						zap.String("event_id", event.ID),
					)
					bus.failed.Add(1)
				}
			}()
			h(event)
			bus.delivered.Add(1)
		}(handler)
	}
	return nil
}

// Subscribe registers a handler for a topic
func (bus *InMemoryBus) Subscribe(topic string, handler Handler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subs[topic] = append(bus.subs[topic], handler)
	bus.logger.Info("Subscribed handler to topic", zap.String("topic", topic))
}

// Wait blocks until every delivery started so far has returned.
func (bus *InMemoryBus) Wait() {
	bus.wg.Wait()
}

// Close waits for in-flight deliveries.
func (bus *InMemoryBus) Close() error {
	bus.Wait()
	return nil
}

// Metrics returns current event bus metrics
func (bus *InMemoryBus) Metrics() Metrics {
	return Metrics{
		Published: bus.published.Load(),
		Delivered: bus.delivered.Load(),
		Failed:    bus.failed.Load(),
	}
}
