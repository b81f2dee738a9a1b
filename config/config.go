// Package config 加载服务配置：默认值 -> YAML 文件 -> .env 文件 -> PFLANZEN_* 环境变量
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pflanzen/auth"
	httpx "pflanzen/http"
	"pflanzen/notify"
	"pflanzen/pflanze"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "PFLANZEN_"

// Config 根配置
type Config struct {
	Server    httpx.WebConfig        `yaml:"server"`
	Log       LogConfig              `yaml:"log"`
	Store     StoreConfig            `yaml:"store"`
	Service   ServiceConfig          `yaml:"service"`
	Auth      AuthConfig             `yaml:"auth"`
	RateLimit RateLimitConfig        `yaml:"rate_limit"`
	Messaging notify.TransportConfig `yaml:"messaging"`
	Mail      notify.MailConfig      `yaml:"mail"`

	// 启动时重建表并写入示例数据
	Populate bool `yaml:"populate"`

	// 优雅关闭的超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig 存储配置
type StoreConfig struct {
	// memory | sql
	Kind string `yaml:"kind"`
	// sqlite | pgx
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// ServiceConfig 实体服务配置
type ServiceConfig struct {
	// at-least | exact
	VersionPolicy string `yaml:"version_policy"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWT        auth.TokenConfig `yaml:"jwt"`
	BcryptCost int              `yaml:"bcrypt_cost"`
}

// RateLimitConfig 限流配置，Requests 为 0 时关闭
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Default 默认配置（开发环境）
func Default() *Config {
	return &Config{
		Server: httpx.WebConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Store:   StoreConfig{Kind: "memory", Driver: "sqlite", DSN: "pflanzen.db"},
		Service: ServiceConfig{VersionPolicy: pflanze.VersionAtLeast.String()},
		Auth: AuthConfig{
			JWT:        auth.TokenConfig{Secret: "pflanzen-dev-secret", Issuer: "pflanzen", ExpiresIn: time.Hour},
			BcryptCost: 10,
		},
		RateLimit:       RateLimitConfig{Requests: 100, Window: 15 * time.Minute},
		Messaging:       notify.TransportConfig{Kind: "memory", QueueSize: 100, Workers: 2},
		Mail:            notify.DefaultMailConfig(),
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load 按优先级加载配置；path 为空时跳过 YAML 文件
func Load(path string) (*Config, error) {
	cfg := Default()

	dirs := []string{"."}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
		if dir := filepath.Dir(path); dir != "." {
			dirs = append(dirs, dir)
		}
	}

	dotenv, err := readDotEnv(dirs...)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, newLookup(dotenv)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Store.Kind) {
	case "memory":
	case "sql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for sql store")
		}
	default:
		return fmt.Errorf("unknown store.kind %q", c.Store.Kind)
	}
	switch c.Service.VersionPolicy {
	case "", pflanze.VersionAtLeast.String(), pflanze.VersionExact.String():
	default:
		return fmt.Errorf("unknown service.version_policy %q", c.Service.VersionPolicy)
	}
	if c.Auth.JWT.Secret == "" {
		return fmt.Errorf("auth.jwt.secret must not be empty")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	return nil
}

// VersionPolicy 解析后的版本策略
func (c *Config) VersionPolicy() pflanze.VersionPolicy {
	return pflanze.ParseVersionPolicy(c.Service.VersionPolicy)
}

// Addr 监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
