package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pflanzen/messaging"
)

func TestSyncTransport_PublishInline(t *testing.T) {
	tpt := NewSyncTransport()
	ctx := context.Background()

	require.Error(t, tpt.Publish(ctx, &messaging.Message{ID: "m0", Type: "t"}))
	require.NoError(t, tpt.Start(ctx))
	require.Error(t, tpt.Start(ctx))

	var got []string
	require.NoError(t, tpt.Subscribe("t", messaging.NewHandler("rec", func(ctx context.Context, m messaging.IMessage) error {
		got = append(got, m.GetID())
		return nil
	})))

	require.NoError(t, tpt.Publish(ctx, &messaging.Message{ID: "m1", Type: "t"}))
	require.NoError(t, tpt.Publish(ctx, &messaging.Message{ID: "m2", Type: "other"}))
	assert.Equal(t, []string{"m1"}, got)

	stats := tpt.Stats()
	assert.True(t, stats.Running)
	assert.Equal(t, 1, stats.HandlerCount)
	require.NoError(t, tpt.Close())
}

func TestSyncTransport_ErrorsReturned(t *testing.T) {
	tpt := NewSyncTransport()
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	boom := errors.New("boom")
	require.NoError(t, tpt.Subscribe("t", messaging.NewHandler("bad", func(ctx context.Context, m messaging.IMessage) error {
		return boom
	})))

	err := tpt.Publish(ctx, &messaging.Message{ID: "m1", Type: "t"})
	require.ErrorIs(t, err, boom)
}
