package interfaces

import (
	"context"
)

// Event is something the catalog announces after it changes.
type Event interface {
	// EventType returns the routing name of the event, e.g. "media.resolved"
	EventType() string

	// Timestamp returns when the event occurred in unix nanoseconds
	Timestamp() int64

	// AggregateID returns the ID of the record that produced the event
	AggregateID() string
}

// EventHandler handles events of a specific type.
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event Event) error

	// EventType returns the type of events this handler processes
	EventType() string
}

// EventPublisher sends events to whatever transport is configured.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus provides in-process pub/sub for catalog events.
type EventBus interface {
	EventPublisher

	// PublishAsync publishes an event without waiting for handlers
	PublishAsync(ctx context.Context, event Event)

	// Subscribe registers a handler for a specific event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler for a specific event type
	Unsubscribe(eventType string, handler EventHandler) error

	// Start starts the event bus
	Start(ctx context.Context) error

	// Stop waits for in-flight async handlers and stops the bus
	Stop() error
}
