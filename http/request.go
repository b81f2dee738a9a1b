// Package http 定义与具体服务器实现无关的路由、上下文与中间件接口
package http

import (
	"context"
	"net/http"
	"net/url"
)

// IRequestReader 读取请求数据
type IRequestReader interface {
	GetMethod() string
	GetPath() string
	GetHeader(key string) string
	GetQuery(key string) string
	GetParam(key string) string
	GetQueryParams() url.Values

	// GetRequest 原始请求，上下文已替换为 GetContext()
	GetRequest() *http.Request

	// ClientIP 优先取 X-Forwarded-For
	ClientIP() string
}

// IRequestBinder 请求体绑定，超出上限或格式错误返回 INVALID_INPUT
type IRequestBinder interface {
	BindJSON(obj any) error
	BindForm() (url.Values, error)
}

type contextKey string

// 预定义上下文键（供实现与调用方共享）
const (
	UserIDKey    contextKey = "user_id"
	UsernameKey  contextKey = "username"
	RolesKey     contextKey = "roles"
	RequestIDKey contextKey = "request_id"
	IPAddressKey contextKey = "ip_address"
)

// IRequestContext 请求上下文接口（实现见 http/basic）
type IRequestContext interface {
	context.Context

	GetUserID() string
	GetUsername() string
	GetRoles() []string
	GetRequestID() string
	GetIPAddress() string

	WithValue(key any, value any) IRequestContext
}
