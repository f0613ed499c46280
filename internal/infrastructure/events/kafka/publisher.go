// Package kafka publishes catalog events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/events"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// Publisher implements interfaces.EventPublisher with a sync producer.
// Messages are keyed by aggregate id so updates to one record stay ordered.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

var _ interfaces.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new Kafka event publisher
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg.Topic), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
	}
}

// ProducerConfig is the sarama config NewPublisher uses.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	return cfg
}

// Publish publishes an event to Kafka
func (p *Publisher) Publish(ctx context.Context, event interfaces.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	envelope, err := events.NewEnvelope(event)
	if err != nil {
		return fmt.Errorf("building envelope: %w", err)
	}
	data, err := envelope.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AggregateID()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType())},
			{Key: []byte("event_id"), Value: []byte(envelope.ID)},
		},
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.producer.Close()
}
