package server

import (
	"net/http"

	"pflanzen/auth"
	httpx "pflanzen/http"
	"pflanzen/metrics"
	"pflanzen/pflanze"
	"pflanzen/pflanze/graphql"
	"pflanzen/pflanze/html"
	"pflanzen/pflanze/rest"
)

// IRouteRegistrar 路由注册器；Server 从容器中收集全部注册器并按优先级挂载
type IRouteRegistrar interface {
	RegisterRoutes(server httpx.IHttpServer) error
	GetName() string
	GetPriority() int
}

// 挂载前缀
const (
	APIPrefix  = "/api"
	HTMLPrefix = "/html"
)

type restRoutes struct {
	builder *rest.RouteBuilder
	users   *auth.UserService
	tokens  *auth.TokenService
}

func newRESTRoutes(service *pflanze.Service, files *pflanze.FileService, users *auth.UserService, tokens *auth.TokenService) *restRoutes {
	rc := rest.DefaultRouteConfig()
	rc.WriteGuards = auth.Guard(tokens, auth.RoleAdmin, auth.RoleMitarbeiter)
	rc.DeleteGuards = auth.Guard(tokens, auth.RoleAdmin)
	return &restRoutes{
		builder: rest.NewRouteBuilder(service, files).WithConfig(rc),
		users:   users,
		tokens:  tokens,
	}
}

func (r *restRoutes) GetName() string  { return "rest" }
func (r *restRoutes) GetPriority() int { return 10 }

func (r *restRoutes) RegisterRoutes(server httpx.IHttpServer) error {
	api := server.Group(APIPrefix)
	api.POST("/login", auth.LoginHandler(r.users, r.tokens))
	return r.builder.Register(api)
}

type graphqlRoutes struct {
	service *pflanze.Service
}

func newGraphQLRoutes(service *pflanze.Service) *graphqlRoutes {
	return &graphqlRoutes{service: service}
}

func (r *graphqlRoutes) GetName() string  { return "graphql" }
func (r *graphqlRoutes) GetPriority() int { return 20 }

func (r *graphqlRoutes) RegisterRoutes(server httpx.IHttpServer) error {
	schema, err := graphql.NewSchema(r.service)
	if err != nil {
		return err
	}
	server.Handle("POST /graphql", graphql.Handler(schema))
	return nil
}

type htmlRoutes struct {
	service *pflanze.Service
}

func newHTMLRoutes(service *pflanze.Service) *htmlRoutes {
	return &htmlRoutes{service: service}
}

func (r *htmlRoutes) GetName() string  { return "html" }
func (r *htmlRoutes) GetPriority() int { return 30 }

func (r *htmlRoutes) RegisterRoutes(server httpx.IHttpServer) error {
	pages, err := html.NewPages(r.service, HTMLPrefix)
	if err != nil {
		return err
	}
	pages.Register(server.Group(HTMLPrefix))
	return nil
}

// opsRoutes 指标与健康检查
type opsRoutes struct {
	name     string
	recorder *metrics.Recorder
}

func (r *opsRoutes) GetName() string  { return "ops" }
func (r *opsRoutes) GetPriority() int { return 100 }

func (r *opsRoutes) RegisterRoutes(server httpx.IHttpServer) error {
	server.Handle("GET /metrics", r.recorder.Handler())
	server.GET("/health", func(ctx httpx.IHttpContext) error {
		return ctx.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"service": r.name,
		})
	})
	return nil
}
