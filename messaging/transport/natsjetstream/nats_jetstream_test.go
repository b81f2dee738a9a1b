package natsjetstream

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pflanzen/logging"
	"pflanzen/messaging"
)

func TestNewTransport_Defaults(t *testing.T) {
	tpt := NewTransport(Config{Logger: logging.NewNoopLogger()})

	assert.Equal(t, nats.DefaultURL, tpt.cfg.URL)
	assert.Equal(t, "PFLANZEN", tpt.cfg.Stream)
	assert.Equal(t, 30*time.Second, tpt.cfg.AckWait)
	assert.Equal(t, "pflanzen.pflanze.created", tpt.subjectName("pflanze.created"))
	assert.Equal(t, "pflanzen-pflanze_created", tpt.durableName("pflanze.created"))
}

func TestStreamConfig_Retention(t *testing.T) {
	tpt := NewTransport(Config{Retention: "limits", MaxAge: time.Hour, Logger: logging.NewNoopLogger()})
	sc := tpt.streamConfig()

	assert.Equal(t, nats.LimitsPolicy, sc.Retention)
	assert.Equal(t, []string{"pflanzen.>"}, sc.Subjects)
	assert.Equal(t, time.Hour, sc.MaxAge)
}

func TestPublish_NotRunning(t *testing.T) {
	tpt := NewTransport(Config{Logger: logging.NewNoopLogger()})
	msg, err := messaging.NewMessage("pflanze.created", nil)
	require.NoError(t, err)

	require.Error(t, tpt.Publish(context.Background(), msg))
	require.Error(t, tpt.Subscribe(messaging.Wildcard, messaging.NewHandler("all", nil)))
	require.NoError(t, tpt.Subscribe("pflanze.created", messaging.NewHandler("h", nil)))
	assert.Equal(t, 1, tpt.Stats().HandlerCount)
	require.NoError(t, tpt.Close())
}
