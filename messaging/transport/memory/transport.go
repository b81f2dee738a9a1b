// Package memory 提供基于内存队列的消息传输实现
// 适用于单机部署、开发环境和测试场景
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pflanzen/logging"
	"pflanzen/messaging"
)

// MemoryTransport 内存消息传输实现
//
// 特性:
//   - 基于内存队列的异步消息传输
//   - Worker 池模式处理消息
//   - 关闭时先排空队列
type MemoryTransport struct {
	registry    *messaging.Registry
	logger      logging.Logger
	queue       chan messaging.IMessage
	queueSize   int
	workerCount int
	running     bool
	mutex       sync.RWMutex
	wg          sync.WaitGroup
}

// NewMemoryTransport 创建内存传输实例
//
// 参数:
//   - queueSize: 队列大小（<=0 时使用默认 1000）
//   - workerCount: Worker 数量（<=0 时使用默认 4）
func NewMemoryTransport(queueSize, workerCount int) *MemoryTransport {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if workerCount <= 0 {
		workerCount = 4
	}
	return &MemoryTransport{
		registry:    messaging.NewRegistry(),
		logger:      logging.GetLogger().WithFields(logging.String("component", "transport.memory")),
		queueSize:   queueSize,
		workerCount: workerCount,
	}
}

// WithLogger 替换日志实例
func (t *MemoryTransport) WithLogger(logger logging.Logger) *MemoryTransport {
	t.logger = logger
	return t
}

// Publish 发布消息到队列；队列满时立即返回错误
func (t *MemoryTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.running {
		return fmt.Errorf("memory transport is not running")
	}

	select {
	case t.queue <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("message queue is full")
	}
}

// Subscribe 订阅消息处理器，支持 "*" 通配符
func (t *MemoryTransport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.registry.Add(messageType, handler)
	return nil
}

// Start 启动 Worker 池
func (t *MemoryTransport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return fmt.Errorf("memory transport is already running")
	}

	t.running = true
	t.queue = make(chan messaging.IMessage, t.queueSize)
	// worker 使用独立上下文：关闭时排空队列，而不是随启动上下文取消而丢弃
	workerCtx := context.WithoutCancel(ctx)
	for i := 0; i < t.workerCount; i++ {
		t.wg.Add(1)
		go t.worker(workerCtx, t.queue)
	}
	return nil
}

// Close 关闭队列并等待处理中的消息完成
func (t *MemoryTransport) Close() error {
	return t.CloseWithTimeout(0)
}

// CloseWithTimeout 关闭传输层，timeout>0 时等待超时返回错误
func (t *MemoryTransport) CloseWithTimeout(timeout time.Duration) error {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		return nil
	}
	t.running = false
	close(t.queue)
	t.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("memory transport close timed out after %s", timeout)
	}
}

// Stats 获取统计信息
func (t *MemoryTransport) Stats() messaging.TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	depth := 0
	if t.running {
		depth = len(t.queue)
	}
	return messaging.TransportStats{
		Name:         "memory",
		Running:      t.running,
		HandlerCount: t.registry.Count(),
		MessageTypes: t.registry.Types(),
		QueueSize:    t.queueSize,
		QueueDepth:   depth,
		WorkerCount:  t.workerCount,
	}
}

func (t *MemoryTransport) worker(ctx context.Context, queue <-chan messaging.IMessage) {
	defer t.wg.Done()
	for message := range queue {
		t.registry.Dispatch(ctx, t.logger, message)
	}
}
