package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/narwhalmedia/mediaresolver/pkg/events"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

const publishTimeout = 5 * time.Second

// Publisher implements interfaces.EventPublisher on JetStream. The event
// type is used as the subject.
type Publisher struct {
	js     jetstream.JetStream
	logger *zap.Logger
}

var _ interfaces.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new NATS event publisher
func NewPublisher(client *Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		js:     client.JetStream(),
		logger: logger.Named("publisher"),
	}
}

// Publish sends the event wrapped in an envelope. The envelope id is the
// JetStream dedup key.
func (p *Publisher) Publish(ctx context.Context, event interfaces.Event) error {
	envelope, err := events.NewEnvelope(event)
	if err != nil {
		return fmt.Errorf("failed to build event envelope: %w", err)
	}
	data, err := envelope.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	subject := event.EventType()
	ack, err := p.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(envelope.ID))
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("event_id", envelope.ID),
			zap.String("subject", subject),
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", envelope.ID),
		zap.String("aggregate_id", envelope.AggregateID),
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence),
	)
	return nil
}
