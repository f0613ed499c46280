package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// Envelope is the wire form of an event on external transports.
type Envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// NewEnvelope wraps event with a fresh message id. The id doubles as the
// broker deduplication key.
func NewEnvelope(event interfaces.Event) (*Envelope, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:          uuid.NewString(),
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  time.Unix(0, event.Timestamp()).UTC(),
		Data:        data,
	}, nil
}

// Marshal encodes the envelope as JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// HandlerFunc adapts a function to interfaces.EventHandler.
type HandlerFunc struct {
	Type string
	Fn   func(ctx context.Context, event interfaces.Event) error
}

func (h *HandlerFunc) Handle(ctx context.Context, event interfaces.Event) error {
	return h.Fn(ctx, event)
}

func (h *HandlerFunc) EventType() string { return h.Type }

// Forwarder relays every event it handles to an external publisher.
func Forwarder(eventType string, publisher interfaces.EventPublisher) interfaces.EventHandler {
	return &HandlerFunc{Type: eventType, Fn: publisher.Publish}
}
