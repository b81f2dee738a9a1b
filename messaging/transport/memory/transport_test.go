package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pflanzen/logging"
	msg "pflanzen/messaging"
)

type testHandler struct{ count *int32 }

func (h testHandler) Handle(ctx context.Context, m msg.IMessage) error {
	atomic.AddInt32(h.count, 1)
	return nil
}
func (h testHandler) Type() string { return "testHandler" }

// 阻塞处理器用于测试关闭超时
type blockingHandler struct{ ch chan struct{} }

func (h blockingHandler) Handle(ctx context.Context, m msg.IMessage) error {
	<-h.ch
	return nil
}
func (h blockingHandler) Type() string { return "blockingHandler" }

func newTransport(queueSize, workers int) *MemoryTransport {
	return NewMemoryTransport(queueSize, workers).WithLogger(logging.NewNoopLogger())
}

func TestMemoryTransport_PublishFlow(t *testing.T) {
	tpt := newTransport(16, 2)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	var cnt int32
	require.NoError(t, tpt.Subscribe("test", testHandler{count: &cnt}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "test"}))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&cnt) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, tpt.Close())
}

func TestMemoryTransport_NotRunning(t *testing.T) {
	tpt := newTransport(4, 1)
	require.Error(t, tpt.Publish(context.Background(), &msg.Message{ID: "m1", Type: "test"}))
}

func TestMemoryTransport_CloseDrainsQueue(t *testing.T) {
	tpt := newTransport(16, 1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tpt.Start(ctx))

	var cnt int32
	require.NoError(t, tpt.Subscribe("test", testHandler{count: &cnt}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "test"}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m2", Type: "test"}))

	// 取消启动上下文不影响排空
	cancel()
	require.NoError(t, tpt.Close())
	require.Equal(t, int32(2), atomic.LoadInt32(&cnt))
	require.False(t, tpt.Stats().Running)
}

func TestMemoryTransport_QueueFull(t *testing.T) {
	tpt := newTransport(1, 1)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	blockCh := make(chan struct{})
	require.NoError(t, tpt.Subscribe("block", blockingHandler{ch: blockCh}))

	// 第一条被 worker 取走并阻塞，第二条占满队列
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "block"}))
	require.Eventually(t, func() bool { return tpt.Stats().QueueDepth == 0 }, time.Second, time.Millisecond)
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m2", Type: "block"}))
	require.Error(t, tpt.Publish(ctx, &msg.Message{ID: "m3", Type: "block"}))

	close(blockCh)
	require.NoError(t, tpt.Close())
}

func TestMemoryTransport_CloseWithTimeout(t *testing.T) {
	tpt := newTransport(4, 1)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	blockCh := make(chan struct{})
	t.Cleanup(func() { close(blockCh) })
	require.NoError(t, tpt.Subscribe("block", blockingHandler{ch: blockCh}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "block"}))

	require.Error(t, tpt.CloseWithTimeout(10*time.Millisecond))
}
