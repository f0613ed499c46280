// Package nats publishes catalog events to NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/narwhalmedia/mediaresolver/pkg/config"
)

// StreamName is the JetStream stream that captures every media.* subject.
const StreamName = "MEDIA_RESOLVER"

// Client wraps NATS and JetStream connections
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
}

// NewClient connects, makes sure the media stream exists and returns a
// cleanup func that drains the connection.
func NewClient(ctx context.Context, cfg config.NATSConfig, logger *zap.Logger) (*Client, func(), error) {
	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		nc:     nc,
		js:     js,
		logger: logger.Named("nats"),
	}

	if err := client.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("failed to drain NATS connection", zap.Error(err))
		}
	}

	logger.Info("NATS client initialized",
		zap.String("url", cfg.URL),
		zap.String("client_id", cfg.ClientID),
	)

	return client, cleanup, nil
}

func (c *Client) ensureStream(ctx context.Context) error {
	stream := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Media records resolved from external providers",
		Subjects:    []string{"media.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Duplicates:  2 * time.Minute,
		MaxMsgs:     -1,
		MaxBytes:    -1,
	}

	if _, err := c.js.CreateOrUpdateStream(ctx, stream); err != nil {
		return fmt.Errorf("failed to create %s stream: %w", StreamName, err)
	}
	return nil
}

// JetStream returns the JetStream context
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Health checks the connection and the JetStream account.
func (c *Client) Health(ctx context.Context) error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("NATS client is not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := c.js.AccountInfo(ctx); err != nil {
		return fmt.Errorf("failed to get JetStream account info: %w", err)
	}
	return nil
}
