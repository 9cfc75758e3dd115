package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/pkg/messaging"
)

func setupBroker(t *testing.T) (messaging.Broker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	logger := zerolog.Nop()
	broker, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr()}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	return broker, mr
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	broker, _ := setupBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := broker.Subscribe(ctx, "subscriber.confirmation_requested")
	require.NoError(t, err)

	// Give the subscriber goroutine time to register.
	time.Sleep(50 * time.Millisecond)

	err = broker.Publish(ctx, "subscriber.confirmation_requested", messaging.Message{
		Type:    "subscriber.confirmation_requested",
		Payload: map[string]string{"email": "reader@example.com"},
	})
	require.NoError(t, err)

	select {
	case raw := <-msgs:
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "subscriber.confirmation_requested", msg.Type)
		assert.Contains(t, string(msg.Payload), "reader@example.com")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	broker, _ := setupBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := broker.Subscribe(ctx, "events")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}

func TestNewRedisBrokerBadURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewRedisBroker(Config{URL: "not-a-url"}, &logger)
	require.Error(t, err)
}
