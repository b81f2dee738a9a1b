package basic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	httpx "pflanzen/http"
	"pflanzen/logging"
)

// HTTPService 将 HttpServer 适配为 Manager 管理的 Server
//
// Start 同步完成端口绑定，随后在后台处理请求。
type HTTPService struct {
	server          *HttpServer
	addr            string
	shutdownTimeout time.Duration
	logger          logging.Logger

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewHTTPService 创建 HTTP 服务；addr 为空时使用 WebConfig 的 Host:Port
func NewHTTPService(server *HttpServer, addr string, logger logging.Logger) *HTTPService {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", server.config.Host, server.config.Port)
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &HTTPService{
		server:          server,
		addr:            addr,
		shutdownTimeout: 10 * time.Second,
		logger:          logger,
	}
}

// WithShutdownTimeout 设置 Close 等待进行中请求的上限
func (s *HTTPService) WithShutdownTimeout(d time.Duration) *HTTPService {
	if d > 0 {
		s.shutdownTimeout = d
	}
	return s
}

func (s *HTTPService) Name() string { return "http" }

// Addr 实际监听地址（端口为 0 时由系统分配）
func (s *HTTPService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *HTTPService) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	cfg := s.server.config
	srv := &http.Server{
		Handler:      s.server.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.listener = ln
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Info(ctx, "http listening", logging.String("addr", ln.Addr().String()), logging.Bool("tls", cfg.TLSEnabled))
	go func() {
		defer close(done)
		var err error
		if cfg.TLSEnabled {
			err = srv.ServeTLS(ln, cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "http serve error", logging.Error(err))
		}
	}()
	return nil
}

func (s *HTTPService) Close() error {
	s.mu.Lock()
	srv, done := s.httpSrv, s.done
	s.httpSrv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-done
	return err
}

var _ httpx.IHttpServer = (*HttpServer)(nil)
