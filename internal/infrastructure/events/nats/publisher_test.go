package nats_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/internal/infrastructure/events/nats"
	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/events"
)

func TestPublisher_Publish(t *testing.T) {
	// Skip if NATS is not available
	cfg := config.NATSConfig{
		URL:           "nats://localhost:4222",
		ClientID:      "test-publisher",
		MaxReconnect:  1,
		ReconnectWait: time.Second,
	}
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cleanup, err := nats.NewClient(ctx, cfg, logger)
	if err != nil {
		t.Skip("NATS not available:", err)
	}
	defer cleanup()

	publisher := nats.NewPublisher(client, logger)
	rec := &domain.MediaRecord{ID: uuid.New(), Title: "Frieren", Type: domain.TypeAnime, Source: "anilist"}

	err = publisher.Publish(ctx, domain.NewMediaResolvedEvent(rec, true))
	require.NoError(t, err)

	stream, err := client.JetStream().Stream(ctx, nats.StreamName)
	require.NoError(t, err)
	msg, err := stream.GetLastMsgForSubject(ctx, domain.EventMediaResolved)
	require.NoError(t, err)

	var envelope events.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	assert.Equal(t, rec.ID.String(), envelope.AggregateID)
	assert.Equal(t, domain.EventMediaResolved, envelope.Type)
	assert.Equal(t, envelope.ID, msg.Header.Get("Nats-Msg-Id"))
}
