package redisstreams

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pflanzen/logging"
	"pflanzen/messaging"
)

func newTestTransport(t *testing.T) (*Transport, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	tpt, err := NewTransport(Config{
		Client:       rc,
		BlockTimeout: 50 * time.Millisecond,
		Logger:       logging.NewNoopLogger(),
	})
	require.NoError(t, err)
	return tpt, rc
}

func TestNewTransport_RequiresClientOrAddr(t *testing.T) {
	_, err := NewTransport(Config{})
	require.Error(t, err)
}

func TestPublish_WritesStreamEntry(t *testing.T) {
	tpt, rc := newTestTransport(t)
	ctx := context.Background()

	msg, err := messaging.NewMessage("pflanze.created", map[string]string{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, tpt.Publish(ctx, msg))

	entries, err := rc.XRange(ctx, "pflanzen:pflanze.created", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, msg.ID, entries[0].Values["id"])

	decoded, err := decodeEntry(entries[0])
	require.NoError(t, err)
	assert.Equal(t, "pflanze.created", decoded.GetType())
	assert.JSONEq(t, `{"id":"1"}`, string(decoded.GetPayload()))
}

func TestDecodeEntry_MissingData(t *testing.T) {
	_, err := decodeEntry(redis.XMessage{ID: "1-0", Values: map[string]any{"id": "x"}})
	require.Error(t, err)
}

func TestSubscribe_ConsumesViaGroup(t *testing.T) {
	tpt, _ := newTestTransport(t)
	ctx := context.Background()

	var got atomic.Value
	require.NoError(t, tpt.Subscribe("pflanze.created", messaging.NewHandler("rec", func(ctx context.Context, m messaging.IMessage) error {
		got.Store(m.GetID())
		return nil
	})))
	require.Error(t, tpt.Subscribe(messaging.Wildcard, messaging.NewHandler("all", nil)))

	require.NoError(t, tpt.Start(ctx))
	t.Cleanup(func() { _ = tpt.Close() })

	msg, err := messaging.NewMessage("pflanze.created", map[string]string{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, tpt.Publish(ctx, msg))

	require.Eventually(t, func() bool {
		id, _ := got.Load().(string)
		return id == msg.ID
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, tpt.Stats().Running)
}
