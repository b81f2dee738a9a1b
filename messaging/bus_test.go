package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pflanzen/logging"
)

type mockTransport struct {
	published     []IMessage
	subscribed    map[string]int
	shouldError   error
	orderRecorder *[]string
}

func newMockTransport() *mockTransport {
	return &mockTransport{subscribed: make(map[string]int)}
}

func (m *mockTransport) Publish(ctx context.Context, message IMessage) error {
	if m.orderRecorder != nil {
		*m.orderRecorder = append(*m.orderRecorder, "transport")
	}
	m.published = append(m.published, message)
	return m.shouldError
}

func (m *mockTransport) Subscribe(messageType string, handler IMessageHandler) error {
	m.subscribed[messageType]++
	return nil
}

func (m *mockTransport) Start(ctx context.Context) error { return nil }
func (m *mockTransport) Close() error                    { return nil }
func (m *mockTransport) Stats() TransportStats           { return TransportStats{} }

type recordingMiddleware struct {
	name  string
	order *[]string
}

func (m *recordingMiddleware) Name() string { return m.name }

func (m *recordingMiddleware) Handle(ctx context.Context, message IMessage, next HandlerFunc) error {
	*m.order = append(*m.order, m.name)
	return next(ctx, message)
}

func TestMessageBus_MiddlewareOrder(t *testing.T) {
	var order []string
	transport := newMockTransport()
	transport.orderRecorder = &order

	bus := NewMessageBus(transport)
	bus.Use(&recordingMiddleware{name: "first", order: &order})
	bus.Use(&recordingMiddleware{name: "second", order: &order})

	msg, err := NewMessage("pflanze.created", map[string]string{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), msg))

	assert.Equal(t, []string{"first", "second", "transport"}, order)
	require.Len(t, transport.published, 1)
}

func TestMessageBus_PropagatesTransportError(t *testing.T) {
	transport := newMockTransport()
	transport.shouldError = errors.New("down")
	bus := NewMessageBus(transport)
	bus.Use(LoggingMiddleware{Logger: logging.NewNoopLogger()})

	msg, err := NewMessage("x", nil)
	require.NoError(t, err)
	assert.EqualError(t, bus.Publish(context.Background(), msg), "down")
}

func TestMessageBus_Subscribe(t *testing.T) {
	transport := newMockTransport()
	bus := NewMessageBus(transport)
	require.NoError(t, bus.Subscribe("a", NewHandler("h", func(ctx context.Context, m IMessage) error { return nil })))
	assert.Equal(t, 1, transport.subscribed["a"])
	assert.Same(t, transport, bus.Transport())
}

func TestRequestIDMiddleware(t *testing.T) {
	transport := newMockTransport()
	bus := NewMessageBus(transport)
	bus.Use(RequestIDMiddleware{})

	msg, err := NewMessage("x", nil)
	require.NoError(t, err)
	ctx := logging.WithRequestID(context.Background(), "req-42")
	require.NoError(t, bus.Publish(ctx, msg))

	assert.Equal(t, "req-42", transport.published[0].GetMetadata()[MetaRequestID])
}

func TestEncodeDecode(t *testing.T) {
	type payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	msg, err := NewMessage("pflanze.created", payload{ID: "1", Name: "Alocasia"})
	require.NoError(t, err)
	msg.Timestamp = time.Unix(1700000000, 0).UTC()
	msg.GetMetadata()[MetaSource] = "test"

	data, err := Encode(msg)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, msg.ID, decoded.GetID())
	assert.Equal(t, "pflanze.created", decoded.GetType())
	assert.True(t, msg.Timestamp.Equal(decoded.GetTimestamp()))
	assert.Equal(t, "test", decoded.GetMetadata()[MetaSource])

	var p payload
	require.NoError(t, DecodePayload(decoded, &p))
	assert.Equal(t, "Alocasia", p.Name)
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry()
	var calls []string
	ok := NewHandler("ok", func(ctx context.Context, m IMessage) error { calls = append(calls, "ok"); return nil })
	bad := NewHandler("bad", func(ctx context.Context, m IMessage) error { calls = append(calls, "bad"); return errors.New("x") })
	all := NewHandler("all", func(ctx context.Context, m IMessage) error { calls = append(calls, "all"); return nil })

	assert.True(t, r.Add("a", ok))
	assert.False(t, r.Add("a", bad))
	r.Add(Wildcard, all)

	failed := r.Dispatch(context.Background(), logging.NewNoopLogger(), &Message{ID: "1", Type: "a"})
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"ok", "bad", "all"}, calls)
	assert.Equal(t, []string{"*", "a"}, r.Types())
	assert.Equal(t, 3, r.Count())
}
