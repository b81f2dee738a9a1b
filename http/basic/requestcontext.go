package basic

import (
	"context"

	httpx "pflanzen/http"
	"pflanzen/logging"
)

type RequestContext struct{ context.Context }

func NewRequestContext(ctx context.Context) httpx.IRequestContext {
	if ctx == nil {
		ctx = context.TODO()
	}
	return &RequestContext{Context: ctx}
}

// IRequestContext methods
func (r *RequestContext) GetUserID() string   { v, _ := r.Value(httpx.UserIDKey).(string); return v }
func (r *RequestContext) GetUsername() string { v, _ := r.Value(httpx.UsernameKey).(string); return v }
func (r *RequestContext) GetRoles() []string  { v, _ := r.Value(httpx.RolesKey).([]string); return v }
func (r *RequestContext) GetRequestID() string {
	return logging.RequestID(r.Context)
}
func (r *RequestContext) GetIPAddress() string {
	v, _ := r.Value(httpx.IPAddressKey).(string)
	return v
}

func (r *RequestContext) WithValue(key any, value any) httpx.IRequestContext {
	return &RequestContext{Context: context.WithValue(r.Context, key, value)}
}

// WithUser 写入已认证用户
func WithUser(ctx httpx.IRequestContext, userID, username string, roles []string) httpx.IRequestContext {
	return ctx.WithValue(httpx.UserIDKey, userID).
		WithValue(httpx.UsernameKey, username).
		WithValue(httpx.RolesKey, roles)
}

// WithRequestID 写入请求ID，日志字段 request_id 由此取得
func WithRequestID(ctx httpx.IRequestContext, requestID string) httpx.IRequestContext {
	return &RequestContext{Context: logging.WithRequestID(ctx, requestID)}
}

func WithIPAddress(ctx httpx.IRequestContext, ip string) httpx.IRequestContext {
	return ctx.WithValue(httpx.IPAddressKey, ip)
}
