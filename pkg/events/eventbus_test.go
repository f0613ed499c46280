package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/narwhalmedia/mediaresolver/pkg/events"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

type testEvent struct {
	Name string `json:"name"`
	at   time.Time
}

func (e *testEvent) EventType() string   { return "media.resolved" }
func (e *testEvent) Timestamp() int64    { return e.at.UnixNano() }
func (e *testEvent) AggregateID() string { return "agg-1" }

func counting(n *atomic.Int32, err error) *events.HandlerFunc {
	return &events.HandlerFunc{
		Type: "media.resolved",
		Fn: func(context.Context, interfaces.Event) error {
			n.Add(1)
			return err
		},
	}
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewNoop())
	var first, second atomic.Int32
	require.NoError(t, bus.Subscribe("media.resolved", counting(&first, errors.New("boom"))))
	require.NoError(t, bus.Subscribe("media.resolved", counting(&second, nil)))

	err := bus.Publish(context.Background(), &testEvent{Name: "Naruto"})

	require.NoError(t, err)
	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewNoop())
	var n atomic.Int32
	h := counting(&n, nil)
	require.NoError(t, bus.Subscribe("media.resolved", h))
	require.NoError(t, bus.Unsubscribe("media.resolved", h))

	require.NoError(t, bus.Publish(context.Background(), &testEvent{}))

	assert.Zero(t, n.Load())
}

func TestAsync_OutlivesCallerContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := events.NewInMemoryEventBus(logger.NewNoop())
	var sawCanceled atomic.Bool
	var n atomic.Int32
	require.NoError(t, bus.Subscribe("media.resolved", &events.HandlerFunc{
		Type: "media.resolved",
		Fn: func(ctx context.Context, _ interfaces.Event) error {
			if ctx.Err() != nil {
				sawCanceled.Store(true)
			}
			n.Add(1)
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, events.Async(bus).Publish(ctx, &testEvent{}))
	cancel()
	require.NoError(t, bus.Stop())

	assert.Equal(t, int32(1), n.Load())
	assert.False(t, sawCanceled.Load())
}

func TestForwarder_RelaysToPublisher(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewNoop())
	sink := &recordingPublisher{}
	require.NoError(t, bus.Subscribe("media.resolved", events.Forwarder("media.resolved", sink)))

	require.NoError(t, bus.Publish(context.Background(), &testEvent{Name: "Bleach"}))

	require.Len(t, sink.events, 1)
	assert.Equal(t, "agg-1", sink.events[0].AggregateID())
}

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	env, err := events.NewEnvelope(&testEvent{Name: "Monster", at: at})

	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "media.resolved", env.Type)
	assert.Equal(t, "agg-1", env.AggregateID)
	assert.True(t, at.Equal(env.OccurredAt))
	assert.JSONEq(t, `{"name":"Monster"}`, string(env.Data))

	raw, err := env.Marshal()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, env.ID, decoded["id"])
}

type recordingPublisher struct {
	events []interfaces.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event interfaces.Event) error {
	p.events = append(p.events, event)
	return nil
}
