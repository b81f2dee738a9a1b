package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"pflanzen/auth"
	"pflanzen/config"
	core "pflanzen/data/db"
	dbbasic "pflanzen/data/db/basic"
	"pflanzen/di"
	httpx "pflanzen/http"
	hbasic "pflanzen/http/basic"
	"pflanzen/logging"
	"pflanzen/messaging"
	"pflanzen/metrics"
	"pflanzen/notify"
	"pflanzen/patterns/retry"
	"pflanzen/pflanze"
	"pflanzen/pflanze/store"
)

// Options 启动选项
type Options struct {
	// 配置文件路径，可为空
	ConfigPath string

	// 预先构造的配置，非 nil 时跳过 config.Load
	Config *config.Config

	// 启动时重建表并写入示例数据
	Populate bool

	// 为 nil 时按配置创建 logrus Logger
	Logger    logging.Logger
	LogOutput io.Writer

	// 邮件发送函数，nil 时使用 SMTP
	SendMail notify.SendFunc
}

// Server 装配存储、实体服务、通知、认证与全部 HTTP 路由
type Server struct {
	opts   Options
	config *config.Config
	logger logging.Logger

	container *di.Container
	db        *dbbasic.DB
	service   *pflanze.Service
	transport messaging.Transport
	http      *hbasic.HttpServer

	mu      sync.Mutex
	runDone chan struct{}
}

var _ IServer = (*Server)(nil)

// New 创建 Server
func New(opts Options) *Server {
	return &Server{opts: opts}
}

// Name 实现 IServer
func (s *Server) Name() string { return "pflanzen" }

// Config 已加载的配置
func (s *Server) Config() *config.Config { return s.config }

// ShutdownTimeout 配置的优雅关闭超时，Engine 在加载配置后读取
func (s *Server) ShutdownTimeout() time.Duration {
	if s.config == nil {
		return 0
	}
	return s.config.ShutdownTimeout
}

// Container 组件容器
func (s *Server) Container() di.IContainer { return s.container }

// LoadConfig 加载配置并初始化全局 Logger
func (s *Server) LoadConfig() error {
	cfg := s.opts.Config
	if cfg == nil {
		loaded, err := config.Load(s.opts.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return err
	}
	if s.opts.Populate {
		cfg.Populate = true
	}
	s.config = cfg

	s.logger = s.opts.Logger
	if s.logger == nil {
		s.logger = logging.NewLogrusLogger(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: s.opts.LogOutput,
		})
	}
	logging.SetLogger(s.logger)
	return nil
}

// SetupDependencies 打开存储并装配服务与路由
func (s *Server) SetupDependencies(ctx context.Context) error {
	s.container = di.New()

	pflanzen, blobs, err := s.openStore(ctx, s.config.Populate)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	recorder := metrics.NewRecorder(nil)
	transport, err := notify.NewTransport(s.config.Messaging)
	if err != nil {
		return err
	}
	s.transport = transport
	bus := notify.NewBus(transport)
	if err := notify.NewMailer(s.config.Mail, s.opts.SendMail).Subscribe(bus); err != nil {
		return fmt.Errorf("subscribe mailer: %w", err)
	}

	svcConfig := pflanze.DefaultServiceConfig()
	svcConfig.VersionPolicy = s.config.VersionPolicy()
	svcConfig.Notifier = notify.NewPublisher(bus, retry.DefaultConfig(), recorder)
	svcConfig.Logger = s.logger
	s.service = pflanze.NewService(pflanzen, svcConfig)
	files := pflanze.NewFileService(pflanzen, blobs, s.logger)

	users, err := auth.NewUserService(auth.DefaultUsers(), auth.NewRoleService(), s.config.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	tokens, err := auth.NewTokenService(s.config.Auth.JWT)
	if err != nil {
		return err
	}

	for _, inst := range []any{s.service, files, users, tokens, recorder} {
		if err := s.container.RegisterInstance(di.TypeName(inst), inst); err != nil {
			return err
		}
	}
	factories := map[string]any{
		"routes.rest":    newRESTRoutes,
		"routes.graphql": newGraphQLRoutes,
		"routes.html":    newHTMLRoutes,
	}
	for name, factory := range factories {
		if err := s.container.RegisterSingleton(name, factory); err != nil {
			return err
		}
	}
	if err := s.container.RegisterInstance("routes.ops", &opsRoutes{name: s.Name(), recorder: recorder}); err != nil {
		return err
	}

	s.http = hbasic.NewHTTPServer(&s.config.Server)
	s.http.Use(s.middlewares(recorder)...)
	return s.registerRoutes()
}

func (s *Server) middlewares(recorder *metrics.Recorder) []httpx.Middleware {
	mw := []httpx.Middleware{
		hbasic.RequestID(),
		hbasic.Logging(s.logger),
		recorder.Middleware(),
		hbasic.Recovery(s.logger),
		hbasic.SecurityHeaders(),
		hbasic.CORS(hbasic.DefaultCORSConfig()),
	}
	if rl := s.config.RateLimit; rl.Requests > 0 {
		mw = append(mw, hbasic.RateLimit(hbasic.RateLimitConfig{
			Requests:   rl.Requests,
			Window:     rl.Window,
			MaxClients: 10000,
		}))
	}
	return mw
}

// registerRoutes 从容器收集全部路由注册器，按优先级挂载
func (s *Server) registerRoutes() error {
	registrars, err := di.Collect[IRouteRegistrar](s.container)
	if err != nil {
		return err
	}
	sort.SliceStable(registrars, func(i, j int) bool {
		return registrars[i].GetPriority() < registrars[j].GetPriority()
	})
	for _, r := range registrars {
		if err := r.RegisterRoutes(s.http); err != nil {
			return fmt.Errorf("register %s routes: %w", r.GetName(), err)
		}
		s.logger.Debug(context.Background(), "routes registered", logging.String("registrar", r.GetName()))
	}
	return nil
}

// openStore 按配置打开实体存储与文件存储；reset 时清空并写入示例数据
func (s *Server) openStore(ctx context.Context, reset bool) (pflanze.Store, pflanze.BlobStore, error) {
	var (
		pflanzen pflanze.Store
		blobs    pflanze.BlobStore
	)
	switch strings.ToLower(s.config.Store.Kind) {
	case "sql":
		db, err := dbbasic.New(core.DBConfig{
			Driver:       s.config.Store.Driver,
			DSN:          s.config.Store.DSN,
			MaxOpenConns: s.config.Store.MaxOpenConns,
		})
		if err != nil {
			return nil, nil, err
		}
		s.db = db
		if reset {
			if err := store.DropSchema(ctx, db); err != nil {
				return nil, nil, err
			}
		}
		if err := store.CreateSchema(ctx, db); err != nil {
			return nil, nil, err
		}
		pflanzen, blobs = store.NewSQL(db), store.NewSQLFiles(db)
	default:
		pflanzen, blobs = store.NewMemory(), store.NewMemoryFiles()
	}
	s.logger.Info(ctx, "store opened", logging.String("kind", s.config.Store.Kind), logging.Bool("populate", reset))

	if reset {
		if err := populate(ctx, pflanzen, blobs, s.logger); err != nil {
			return nil, nil, err
		}
	}
	return pflanzen, blobs, nil
}

// Populate 只重建并填充存储，不启动服务
func (s *Server) Populate(ctx context.Context) error {
	if s.config == nil {
		if err := s.LoadConfig(); err != nil {
			return err
		}
	}
	if strings.ToLower(s.config.Store.Kind) != "sql" {
		s.logger.Warn(ctx, "populate on memory store has no lasting effect")
	}
	_, _, err := s.openStore(ctx, true)
	if s.db != nil {
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// StartBackgroundTasks 启动消息传输
func (s *Server) StartBackgroundTasks(ctx context.Context) error {
	if err := s.transport.Start(ctx); err != nil {
		return fmt.Errorf("start message transport: %w", err)
	}
	return nil
}

// Handler 全部路由的 http.Handler
func (s *Server) Handler() http.Handler {
	return s.http.Handler()
}

// Run 由 Manager 运行 HTTP 服务；ctx 结束时依次关闭 HTTP、等待通知、关闭传输
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runDone = make(chan struct{})
	done := s.runDone
	s.mu.Unlock()
	defer close(done)

	timeout := s.config.ShutdownTimeout
	manager := hbasic.NewManager().
		WithLogger(s.logger).
		WithShutdownTimeout(timeout).
		WithServers(
			hbasic.Hook{HookName: "transport", OnClose: s.transport.Close},
			hbasic.Hook{HookName: "notifications", OnClose: func() error {
				closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				return s.service.Close(closeCtx)
			}},
			hbasic.NewHTTPService(s.http, s.config.Addr(), s.logger).WithShutdownTimeout(timeout),
		)
	return manager.Run(ctx)
}

// Shutdown 等待 Run 结束后关闭数据库；未运行时直接关闭服务与传输
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.runDone
	s.mu.Unlock()

	var errs []error
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	} else {
		if s.service != nil {
			if err := s.service.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if s.transport != nil {
			if err := s.transport.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
