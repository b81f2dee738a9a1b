package server

import (
	"context"
	"time"

	"pflanzen/logging"
)

// State 服务器生命周期状态
type State int

const (
	StatePending State = iota
	StateInitializing
	// StatePrepared 依赖已就绪，等待启动
	StatePrepared
	StateRunning
	StateStopping
	StateStopped
	// StateError 发生不可恢复的错误
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInitializing:
		return "Initializing"
	case StatePrepared:
		return "Prepared"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Hook 生命周期回调，ctx 用于超时控制
type Hook func(ctx context.Context) error

// EngineOptions 引擎选项
type EngineOptions struct {
	Name            string
	Version         string
	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration

	// 为 nil 时使用全局 Logger
	Logger logging.Logger

	OnBeforeStart []Hook
	OnAfterStart  []Hook
	OnBeforeStop  []Hook
	OnAfterStop   []Hook
}

// EngineOption 配置修改函数
type EngineOption func(*EngineOptions)

// DefaultEngineOptions 默认选项
func DefaultEngineOptions() *EngineOptions {
	return &EngineOptions{
		Name:            "pflanzen",
		Version:         "0.0.0",
		StartupTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func WithVersion(version string) EngineOption {
	return func(o *EngineOptions) { o.Version = version }
}

// WithStartupTimeout 限制 SetupDependencies 的耗时；非正值被忽略
func WithStartupTimeout(t time.Duration) EngineOption {
	return func(o *EngineOptions) {
		if t > 0 {
			o.StartupTimeout = t
		}
	}
}

// WithShutdownTimeout 设置关闭超时；非正值被忽略
func WithShutdownTimeout(t time.Duration) EngineOption {
	return func(o *EngineOptions) {
		if t > 0 {
			o.ShutdownTimeout = t
		}
	}
}

func WithLogger(l logging.Logger) EngineOption {
	return func(o *EngineOptions) { o.Logger = l }
}

// WithAfterStart 添加启动后回调（失败只记录警告）
func WithAfterStart(fn Hook) EngineOption {
	return func(o *EngineOptions) { o.OnAfterStart = append(o.OnAfterStart, fn) }
}

// WithBeforeStop 添加关闭前回调
func WithBeforeStop(fn Hook) EngineOption {
	return func(o *EngineOptions) { o.OnBeforeStop = append(o.OnBeforeStop, fn) }
}

// WithBeforeStart 添加启动前回调
func WithBeforeStart(fn Hook) EngineOption {
	return func(o *EngineOptions) { o.OnBeforeStart = append(o.OnBeforeStart, fn) }
}

// WithAfterStop 添加停止后回调
func WithAfterStop(fn Hook) EngineOption {
	return func(o *EngineOptions) { o.OnAfterStop = append(o.OnAfterStop, fn) }
}
