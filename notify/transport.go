package notify

import (
	"fmt"
	"strings"

	"pflanzen/messaging"
	"pflanzen/messaging/transport/memory"
	"pflanzen/messaging/transport/natsjetstream"
	"pflanzen/messaging/transport/redisstreams"
	synctransport "pflanzen/messaging/transport/sync"
)

// TransportConfig 消息传输选择
type TransportConfig struct {
	// memory | sync | nats | redis
	Kind string `yaml:"kind"`

	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`

	NatsURL   string `yaml:"nats_url"`
	RedisAddr string `yaml:"redis_addr"`
}

// NewTransport 按配置构造传输实例（尚未启动）
func NewTransport(cfg TransportConfig) (messaging.Transport, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "memory":
		return memory.NewMemoryTransport(cfg.QueueSize, cfg.Workers), nil
	case "sync":
		return synctransport.NewSyncTransport(), nil
	case "nats":
		return natsjetstream.NewTransport(natsjetstream.Config{URL: cfg.NatsURL}), nil
	case "redis":
		t, err := redisstreams.NewTransport(redisstreams.Config{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown message transport %q", cfg.Kind)
	}
}

// NewBus 创建带请求ID与日志中间件的总线
func NewBus(transport messaging.Transport) *messaging.MessageBus {
	bus := messaging.NewMessageBus(transport)
	bus.Use(messaging.RequestIDMiddleware{})
	bus.Use(messaging.LoggingMiddleware{})
	return bus
}
