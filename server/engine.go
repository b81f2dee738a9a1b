// Package server 编排服务的启动与优雅关闭，并装配 pflanzen 的全部组件
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pflanzen/logging"
)

// IServer 应用需实现的生命周期步骤，由 Engine 按固定顺序调用
type IServer interface {
	Name() string

	// LoadConfig 读取配置文件与环境变量
	LoadConfig() error

	// SetupDependencies 打开存储、构造服务、注册路由
	SetupDependencies(ctx context.Context) error

	// StartBackgroundTasks 启动消息传输等非阻塞任务
	StartBackgroundTasks(ctx context.Context) error

	// Run 启动主服务并阻塞，直到停止或出错
	Run(ctx context.Context) error

	// Shutdown 释放资源
	Shutdown(ctx context.Context) error
}

// Engine 负责编排启动流程：
// LoadConfig -> SetupDependencies -> StartBackgroundTasks -> Run -> 等待信号 -> Shutdown
type Engine struct {
	server  IServer
	options *EngineOptions
	logger  logging.Logger

	mu    sync.RWMutex
	state State
}

// NewEngine 创建启动引擎
func NewEngine(server IServer, opts ...EngineOption) *Engine {
	options := DefaultEngineOptions()
	if name := server.Name(); name != "" {
		options.Name = name
	}
	for _, o := range opts {
		o(options)
	}
	return &Engine{
		server:  server,
		options: options,
		state:   StatePending,
	}
}

// State 当前状态
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// log 配置加载后才能确定日志实现，因此每次取当前的全局 Logger
func (e *Engine) log() logging.Logger {
	l := e.options.Logger
	if l == nil {
		l = logging.GetLogger()
	}
	return l.WithFields(logging.String("component", "server"), logging.String("service", e.options.Name))
}

// Start 执行完整生命周期；ctx 结束或收到 SIGINT/SIGTERM 时优雅关闭
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.setState(StateInitializing)
	if err := e.server.LoadConfig(); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c, ok := e.server.(interface{ ShutdownTimeout() time.Duration }); ok && c.ShutdownTimeout() > 0 {
		e.options.ShutdownTimeout = c.ShutdownTimeout()
	}
	e.log().Info(ctx, "starting", logging.String("version", e.options.Version))

	setupCtx, setupCancel := context.WithTimeout(ctx, e.options.StartupTimeout)
	defer setupCancel()
	if err := e.server.SetupDependencies(setupCtx); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	e.setState(StatePrepared)

	for _, hook := range e.options.OnBeforeStart {
		if err := hook(ctx); err != nil {
			e.setState(StateError)
			return fmt.Errorf("OnBeforeStart hook failed: %w", err)
		}
	}

	if err := e.server.StartBackgroundTasks(ctx); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to start background tasks: %w", err)
	}

	e.setState(StateRunning)
	errChan := make(chan error, 1)
	go func() {
		errChan <- e.server.Run(ctx)
	}()

	for _, hook := range e.options.OnAfterStart {
		if err := hook(ctx); err != nil {
			e.log().Warn(ctx, "OnAfterStart hook failed", logging.Error(err))
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case err := <-errChan:
		if err != nil {
			e.log().Error(ctx, "server stopped with error", logging.Error(err))
			runErr = err
		} else {
			e.log().Info(ctx, "server stopped")
		}
	case <-sigCtx.Done():
		e.log().Info(ctx, "shutdown requested")
	}
	cancel()

	e.setState(StateStopping)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), e.options.ShutdownTimeout)
	defer shutdownCancel()

	for _, hook := range e.options.OnBeforeStop {
		if err := hook(shutdownCtx); err != nil {
			e.log().Warn(shutdownCtx, "OnBeforeStop hook failed", logging.Error(err))
		}
	}

	if err := e.server.Shutdown(shutdownCtx); err != nil {
		e.setState(StateError)
		e.log().Error(shutdownCtx, "shutdown error", logging.Error(err))
		return err
	}

	for _, hook := range e.options.OnAfterStop {
		if err := hook(shutdownCtx); err != nil {
			e.log().Warn(shutdownCtx, "OnAfterStop hook failed", logging.Error(err))
		}
	}

	if runErr != nil {
		e.setState(StateError)
		return fmt.Errorf("server execution error: %w", runErr)
	}

	e.setState(StateStopped)
	e.log().Info(shutdownCtx, "shutdown complete")
	return nil
}
