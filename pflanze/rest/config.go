package rest

import (
	httpx "pflanzen/http"
)

// RouteConfig 路由配置
type RouteConfig struct {
	// 资源路径（相对于所在分组）
	BasePath string

	// 写操作（创建、更新、上传）的守卫中间件
	WriteGuards []httpx.Middleware

	// 删除的守卫中间件
	DeleteGuards []httpx.Middleware

	// 附件上限（字节），超出返回 413
	MaxFileSize int64
}

// DefaultMaxFileSize 默认附件上限
const DefaultMaxFileSize = 16 << 20

// DefaultRouteConfig 默认路由配置（无守卫）
func DefaultRouteConfig() *RouteConfig {
	return &RouteConfig{BasePath: "/pflanzen", MaxFileSize: DefaultMaxFileSize}
}
