// Package rest 将 Pflanze 实体服务映射为 REST 接口
package rest

import (
	"fmt"
	"net/http"
	"strings"

	httpx "pflanzen/http"
	"pflanzen/logging"
	"pflanzen/pflanze"
)

// RouteBuilder 路由构建器
type RouteBuilder struct {
	config      *RouteConfig
	middlewares []httpx.Middleware
	service     *pflanze.Service
	files       *pflanze.FileService
	logger      logging.Logger
}

// NewRouteBuilder 创建路由构建器；files 为 nil 时不注册附件路由
func NewRouteBuilder(service *pflanze.Service, files *pflanze.FileService) *RouteBuilder {
	return &RouteBuilder{
		config:  DefaultRouteConfig(),
		service: service,
		files:   files,
		logger:  logging.GetLogger().WithFields(logging.String("component", "pflanze.rest")),
	}
}

// WithConfig 配置路由行为
func (rb *RouteBuilder) WithConfig(config *RouteConfig) *RouteBuilder {
	if config != nil {
		rb.config = config
	}
	return rb
}

// Use 注册作用于全部路由的中间件
func (rb *RouteBuilder) Use(middlewares ...httpx.Middleware) *RouteBuilder {
	rb.middlewares = append(rb.middlewares, middlewares...)
	return rb
}

// Register 注册到路由组
func (rb *RouteBuilder) Register(group httpx.IRouteGroup) error {
	if rb.service == nil {
		return fmt.Errorf("service cannot be nil")
	}
	base := rb.config.BasePath
	write := rb.chain(rb.config.WriteGuards...)
	remove := rb.chain(rb.config.DeleteGuards...)
	read := rb.chain()

	// GET /pflanzen - 条件查询
	group.GET(base, rb.handleFind, read...)
	// GET /pflanzen/:id - 按ID查询，支持 If-None-Match
	group.GET(base+"/:id", rb.handleFindByID, read...)
	// POST /pflanzen - 创建
	group.POST(base, rb.handleCreate, write...)
	// PUT /pflanzen/:id - 更新，要求 If-Match
	group.PUT(base+"/:id", rb.handleUpdate, write...)
	// DELETE /pflanzen/:id - 删除
	group.DELETE(base+"/:id", rb.handleDelete, remove...)

	if rb.files != nil {
		group.PUT(base+"/:id/file", rb.handleUpload, write...)
		group.GET(base+"/:id/file", rb.handleDownload, read...)
	}

	// 类别列表尚未提供
	group.GET("/pflanzentypen", func(ctx httpx.IHttpContext) error {
		return ctx.NoContent(http.StatusNotImplemented)
	}, read...)
	return nil
}

func (rb *RouteBuilder) chain(guards ...httpx.Middleware) []httpx.Middleware {
	out := make([]httpx.Middleware, 0, len(rb.middlewares)+len(guards))
	out = append(out, rb.middlewares...)
	return append(out, guards...)
}

// baseURI 资源的绝对地址，如 https://localhost:3000/api/pflanzen
func baseURI(ctx httpx.IHttpContext) string {
	req := ctx.GetRequest()
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	path := req.URL.Path
	if pattern := req.Pattern; pattern != "" {
		// 截去 /{id} 及其后的部分
		p := pattern
		if _, after, found := strings.Cut(pattern, " "); found {
			p = after
		}
		if i := strings.Index(p, "/{"); i >= 0 {
			p = p[:i]
		}
		path = p
	}
	return scheme + "://" + req.Host + path
}
