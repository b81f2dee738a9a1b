package messaging

import (
	"context"
	"sync"

	"pflanzen/logging"
)

// IMiddleware 定义了消息总线中间件的接口
type IMiddleware interface {
	Handle(ctx context.Context, message IMessage, next HandlerFunc) error
	Name() string
}

// IMessageBus 消息总线接口
type IMessageBus interface {
	Subscribe(messageType string, handler IMessageHandler) error
	Publish(ctx context.Context, message IMessage) error
	Use(middleware IMiddleware)
}

// MessageBus 消息总线基础实现
// 它依赖于 Transport 接口来处理实际的消息传输，并支持发布侧中间件
type MessageBus struct {
	transport   Transport
	middlewares []IMiddleware
	mutex       sync.RWMutex
}

// NewMessageBus 创建消息总线
func NewMessageBus(transport Transport) *MessageBus {
	return &MessageBus{transport: transport}
}

// Transport 返回底层传输
func (bus *MessageBus) Transport() Transport {
	return bus.transport
}

// Use 注册中间件
func (bus *MessageBus) Use(middleware IMiddleware) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.middlewares = append(bus.middlewares, middleware)
}

// Subscribe 订阅消息处理器
func (bus *MessageBus) Subscribe(messageType string, handler IMessageHandler) error {
	return bus.transport.Subscribe(messageType, handler)
}

// Publish 发布消息，并在发送到 Transport 前执行中间件
func (bus *MessageBus) Publish(ctx context.Context, message IMessage) error {
	bus.mutex.RLock()
	middlewares := bus.middlewares
	bus.mutex.RUnlock()

	next := HandlerFunc(bus.transport.Publish)
	for i := len(middlewares) - 1; i >= 0; i-- {
		middleware := middlewares[i]
		currentNext := next
		next = func(ctx context.Context, msg IMessage) error {
			return middleware.Handle(ctx, msg, currentNext)
		}
	}
	return next(ctx, message)
}

// RequestIDMiddleware 将上下文中的请求ID写入消息元数据
type RequestIDMiddleware struct{}

func (RequestIDMiddleware) Name() string { return "RequestID" }

func (RequestIDMiddleware) Handle(ctx context.Context, message IMessage, next HandlerFunc) error {
	if id := logging.RequestID(ctx); id != "" {
		md := message.GetMetadata()
		if md[MetaRequestID] == "" {
			md[MetaRequestID] = id
		}
	}
	return next(ctx, message)
}

// LoggingMiddleware 记录发布结果
type LoggingMiddleware struct {
	Logger logging.Logger
}

func (m LoggingMiddleware) Name() string { return "Logging" }

func (m LoggingMiddleware) Handle(ctx context.Context, message IMessage, next HandlerFunc) error {
	err := next(ctx, message)
	logger := m.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	if err != nil {
		logger.Warn(ctx, "publish failed",
			logging.String("message_type", message.GetType()),
			logging.String("message_id", message.GetID()),
			logging.Error(err))
	} else {
		logger.Debug(ctx, "message published",
			logging.String("message_type", message.GetType()),
			logging.String("message_id", message.GetID()))
	}
	return err
}
