package basic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"pflanzen/errors"
	httpx "pflanzen/http"
)

// HttpServer 基于标准库 net/http 的 IHttpServer 实现
//
// 路由以 Go 1.22 的 "METHOD /path/{param}" 模式注册；未匹配的请求由 404 兜底处理器响应。
type HttpServer struct {
	mux         *http.ServeMux
	config      *httpx.WebConfig
	server      *http.Server
	routes      []*route
	middlewares []httpx.Middleware
	mu          sync.RWMutex
	buildOnce   sync.Once
}

type route struct {
	method      string
	pattern     string
	handler     httpx.HttpHandler
	raw         http.Handler
	middlewares []httpx.Middleware
}

// NewHTTPServer 创建基于 net/http 的服务器
func NewHTTPServer(config *httpx.WebConfig) *HttpServer {
	if config == nil {
		config = &httpx.WebConfig{}
	}
	return &HttpServer{
		mux:         http.NewServeMux(),
		config:      config,
		middlewares: make([]httpx.Middleware, 0),
	}
}

// 路由注册实现
func (s *HttpServer) GET(path string, handler httpx.HttpHandler, mw ...httpx.Middleware) httpx.IHttpServer {
	return s.addRoute(http.MethodGet, path, handler, mw)
}
func (s *HttpServer) POST(path string, handler httpx.HttpHandler, mw ...httpx.Middleware) httpx.IHttpServer {
	return s.addRoute(http.MethodPost, path, handler, mw)
}
func (s *HttpServer) PUT(path string, handler httpx.HttpHandler, mw ...httpx.Middleware) httpx.IHttpServer {
	return s.addRoute(http.MethodPut, path, handler, mw)
}
func (s *HttpServer) DELETE(path string, handler httpx.HttpHandler, mw ...httpx.Middleware) httpx.IHttpServer {
	return s.addRoute(http.MethodDelete, path, handler, mw)
}

// Handle 挂载标准库 Handler；pattern 可带方法前缀，如 "GET /metrics"
func (s *HttpServer) Handle(pattern string, handler http.Handler) httpx.IHttpServer {
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		method, path = "", pattern
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, &route{method: method, pattern: path, raw: handler})
	return s
}

func (s *HttpServer) addRoute(method, path string, handler httpx.HttpHandler, mw []httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, &route{
		method:      method,
		pattern:     path,
		handler:     handler,
		middlewares: mw,
	})
	return s
}

// 路由分组
func (s *HttpServer) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: prefix, server: s, middlewares: make([]httpx.Middleware, 0)}
}

// 全局中间件
func (s *HttpServer) Use(middleware ...httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
	return s
}

// Handler 首次调用时注册全部路由
func (s *HttpServer) Handler() http.Handler {
	s.buildOnce.Do(s.registerRoutes)
	return s.mux
}

// 启停
func (s *HttpServer) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	}
	s.mu.Lock()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	var err error
	if s.config.TLSEnabled {
		err = srv.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *HttpServer) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// 内部：注册全部路由
func (s *HttpServer) registerRoutes() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.routes {
		pattern := convertPathPattern(r.pattern)
		if r.method != "" {
			pattern = r.method + " " + pattern
		}
		s.mux.HandleFunc(pattern, s.createHandler(r))
	}
	s.mux.HandleFunc("/", s.createHandler(&route{handler: notFound}))
}

func notFound(ctx httpx.IHttpContext) error {
	return errors.NewError(errors.ErrCodeNotFound, "Cannot "+ctx.GetMethod()+" "+ctx.GetPath())
}

// 将 :id 转为 {id}
func convertPathPattern(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func (s *HttpServer) createHandler(r *route) http.HandlerFunc {
	terminal := r.handler
	if r.raw != nil {
		raw := r.raw
		terminal = func(ctx httpx.IHttpContext) error {
			c := ctx.(*HttpContext)
			raw.ServeHTTP(c.writer, c.GetRequest())
			return nil
		}
	}
	// 组装中间件链：全局 -> 路由级
	middlewares := append([]httpx.Middleware{}, s.middlewares...)
	middlewares = append(middlewares, r.middlewares...)

	return func(w http.ResponseWriter, req *http.Request) {
		ctx := NewBaseHttpContext(w, req)
		if err := executeMiddlewareChain(ctx, middlewares, terminal); err != nil {
			_ = (&HttpUtils{}).WriteErrorResponse(ctx, err)
		}
	}
}

func executeMiddlewareChain(ctx httpx.IHttpContext, middlewares []httpx.Middleware, handler httpx.HttpHandler) error {
	if len(middlewares) == 0 {
		return handler(ctx)
	}
	return middlewares[0](ctx, func() error { return executeMiddlewareChain(ctx, middlewares[1:], handler) })
}

// RouteGroup 实现 IRouteGroup
type RouteGroup struct {
	prefix      string
	server      *HttpServer
	middlewares []httpx.Middleware
}

func (g *RouteGroup) GET(path string, h httpx.HttpHandler, mw ...httpx.Middleware) httpx.IRouteGroup {
	return g.add(http.MethodGet, path, h, mw)
}
func (g *RouteGroup) POST(path string, h httpx.HttpHandler, mw ...httpx.Middleware) httpx.IRouteGroup {
	return g.add(http.MethodPost, path, h, mw)
}
func (g *RouteGroup) PUT(path string, h httpx.HttpHandler, mw ...httpx.Middleware) httpx.IRouteGroup {
	return g.add(http.MethodPut, path, h, mw)
}
func (g *RouteGroup) DELETE(path string, h httpx.HttpHandler, mw ...httpx.Middleware) httpx.IRouteGroup {
	return g.add(http.MethodDelete, path, h, mw)
}

// Group 子分组继承父分组的中间件
func (g *RouteGroup) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{
		prefix:      g.prefix + prefix,
		server:      g.server,
		middlewares: append([]httpx.Middleware{}, g.middlewares...),
	}
}
func (g *RouteGroup) Use(mw ...httpx.Middleware) httpx.IRouteGroup {
	g.middlewares = append(g.middlewares, mw...)
	return g
}

func (g *RouteGroup) add(method, path string, h httpx.HttpHandler, mw []httpx.Middleware) httpx.IRouteGroup {
	chain := append(append([]httpx.Middleware{}, g.middlewares...), mw...)
	g.server.addRoute(method, g.prefix+path, h, chain)
	return g
}
