// Package sync 提供同步的消息传输实现，Publish 在调用方 goroutine 中直接执行处理器
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"pflanzen/messaging"
)

// SyncTransport 同步传输：处理器错误直接返回给发布方
type SyncTransport struct {
	registry *messaging.Registry
	running  atomic.Bool
}

// NewSyncTransport 创建一个新的同步传输实例
func NewSyncTransport() *SyncTransport {
	return &SyncTransport{registry: messaging.NewRegistry()}
}

// Publish 立即、同步地发布消息
func (t *SyncTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	if !t.running.Load() {
		return fmt.Errorf("sync transport is not running")
	}

	var errs []error
	for _, handler := range t.registry.Handlers(message.GetType()) {
		if err := handler.Handle(ctx, message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", handler.Type(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("message handling completed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Subscribe 订阅消息处理器
func (t *SyncTransport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.registry.Add(messageType, handler)
	return nil
}

// Start 启动传输层
func (t *SyncTransport) Start(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sync transport is already running")
	}
	return nil
}

// Close 关闭传输层
func (t *SyncTransport) Close() error {
	t.running.Store(false)
	return nil
}

// Stats 返回统计信息
func (t *SyncTransport) Stats() messaging.TransportStats {
	return messaging.TransportStats{
		Name:         "sync",
		Running:      t.running.Load(),
		HandlerCount: t.registry.Count(),
		MessageTypes: t.registry.Types(),
	}
}
