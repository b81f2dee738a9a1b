package http

import (
	"context"
	"net/http"
)

// IHttpServer HTTP 服务器接口
type IHttpServer interface {
	GET(path string, handler HttpHandler, middleware ...Middleware) IHttpServer
	POST(path string, handler HttpHandler, middleware ...Middleware) IHttpServer
	PUT(path string, handler HttpHandler, middleware ...Middleware) IHttpServer
	DELETE(path string, handler HttpHandler, middleware ...Middleware) IHttpServer

	// Handle 挂载标准库 Handler（GraphQL、metrics 等），同样经过全局中间件
	Handle(pattern string, handler http.Handler) IHttpServer

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IHttpServer

	// Handler 返回注册完全部路由的 http.Handler
	Handler() http.Handler

	Start(addr string) error
	Stop(ctx context.Context) error
}

// Middleware 定义 HTTP 中间件签名
type Middleware func(ctx IHttpContext, next func() error) error

// IRouteGroup 定义路由组接口
type IRouteGroup interface {
	GET(path string, handler HttpHandler, middleware ...Middleware) IRouteGroup
	POST(path string, handler HttpHandler, middleware ...Middleware) IRouteGroup
	PUT(path string, handler HttpHandler, middleware ...Middleware) IRouteGroup
	DELETE(path string, handler HttpHandler, middleware ...Middleware) IRouteGroup

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IRouteGroup
}
