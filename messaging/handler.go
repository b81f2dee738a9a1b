package messaging

import (
	"context"
	"sort"
	"sync"

	"pflanzen/logging"
)

// IMessageHandler 消息处理器接口
type IMessageHandler interface {
	// Handle 处理消息
	Handle(ctx context.Context, message IMessage) error

	// Type 返回处理器类型（用于日志和调试）
	Type() string
}

// HandlerFunc 是一个函数类型，用于处理消息。它是中间件链中的基本执行单元
type HandlerFunc func(ctx context.Context, message IMessage) error

type funcHandler struct {
	name string
	fn   HandlerFunc
}

func (h *funcHandler) Handle(ctx context.Context, message IMessage) error { return h.fn(ctx, message) }
func (h *funcHandler) Type() string                                      { return h.name }

// NewHandler 将函数包装为处理器
func NewHandler(name string, fn HandlerFunc) IMessageHandler {
	return &funcHandler{name: name, fn: fn}
}

// Wildcard 订阅所有消息类型
const Wildcard = "*"

// Registry 处理器注册表，供各传输实现复用
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]IMessageHandler
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]IMessageHandler)}
}

// Add 注册处理器，返回该类型是否为首次注册
func (r *Registry) Add(messageType string, handler IMessageHandler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	first := len(r.handlers[messageType]) == 0
	r.handlers[messageType] = append(r.handlers[messageType], handler)
	return first
}

// Handlers 返回精确匹配与通配符处理器的副本
func (r *Registry) Handlers(messageType string) []IMessageHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exact := r.handlers[messageType]
	wildcard := r.handlers[Wildcard]
	out := make([]IMessageHandler, 0, len(exact)+len(wildcard))
	out = append(out, exact...)
	if messageType != Wildcard {
		out = append(out, wildcard...)
	}
	return out
}

// Types 已注册的消息类型（排序）
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count 处理器总数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, hs := range r.handlers {
		n += len(hs)
	}
	return n
}

// Dispatch 调用所有匹配的处理器，错误只记录不中断，返回失败个数
func (r *Registry) Dispatch(ctx context.Context, logger logging.Logger, message IMessage) int {
	failed := 0
	for _, h := range r.Handlers(message.GetType()) {
		if err := h.Handle(ctx, message); err != nil {
			failed++
			logger.Warn(ctx, "message handler failed",
				logging.String("message_type", message.GetType()),
				logging.String("message_id", message.GetID()),
				logging.String("handler", h.Type()),
				logging.Error(err))
		}
	}
	return failed
}
