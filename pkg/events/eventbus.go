// Package events provides the in-process event bus and the wire envelope
// used by the external transports.
package events

import (
	"context"
	"sync"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// InMemoryEventBus is an in-memory implementation of EventBus
type InMemoryEventBus struct {
	handlers map[string][]interfaces.EventHandler
	mu       sync.RWMutex
	logger   interfaces.Logger
	wg       sync.WaitGroup
}

var _ interfaces.EventBus = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger interfaces.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]interfaces.EventHandler),
		logger:   logger,
	}
}

// Publish delivers an event to every subscriber. Handler errors are logged
// and never stop delivery to the remaining handlers.
func (eb *InMemoryEventBus) Publish(ctx context.Context, event interfaces.Event) error {
	eb.mu.RLock()
	handlers := append([]interfaces.EventHandler(nil), eb.handlers[event.EventType()]...)
	eb.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			eb.logger.Error("Event handler failed",
				interfaces.String("event_type", event.EventType()),
				interfaces.String("aggregate_id", event.AggregateID()),
				interfaces.Error(err))
		}
	}

	return nil
}

// PublishAsync publishes an event without waiting for handlers. The
// handlers keep the caller's values but not its cancellation, so a finished
// HTTP request does not abort them.
func (eb *InMemoryEventBus) PublishAsync(ctx context.Context, event interfaces.Event) {
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		_ = eb.Publish(context.WithoutCancel(ctx), event)
	}()
}

// Subscribe registers a handler for a specific event type
func (eb *InMemoryEventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debug("Event handler subscribed",
		interfaces.String("event_type", eventType))

	return nil
}

// Unsubscribe removes a handler for a specific event type
func (eb *InMemoryEventBus) Unsubscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h == handler {
			eb.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			break
		}
	}

	return nil
}

// Start starts the event bus
func (eb *InMemoryEventBus) Start(ctx context.Context) error {
	eb.logger.Info("Event bus started")
	return nil
}

// Stop waits for in-flight async handlers.
func (eb *InMemoryEventBus) Stop() error {
	eb.wg.Wait()
	eb.logger.Info("Event bus stopped")
	return nil
}

// Async exposes a bus as a publisher that never blocks the caller on
// handlers.
func Async(bus interfaces.EventBus) interfaces.EventPublisher {
	return asyncPublisher{bus: bus}
}

type asyncPublisher struct {
	bus interfaces.EventBus
}

func (p asyncPublisher) Publish(ctx context.Context, event interfaces.Event) error {
	p.bus.PublishAsync(ctx, event)
	return nil
}
