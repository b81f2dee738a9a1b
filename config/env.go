package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// lookup 先查进程环境变量，再查 .env 文件中的值
type lookup func(key string) (string, bool)

func newLookup(dotenv map[string]string) lookup {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// readDotEnv 依次读取各目录下的 .env 与 .env.local，后读到的覆盖先读到的
func readDotEnv(dirs ...string) (map[string]string, error) {
	out := make(map[string]string)
	for _, dir := range dirs {
		for _, name := range []string{".env", ".env.local"} {
			values, err := godotenv.Read(filepath.Join(dir, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", filepath.Join(dir, name), err)
			}
			for k, v := range values {
				out[k] = v
			}
		}
	}
	return out, nil
}

type envLoader struct {
	get lookup
	err error
}

func applyEnv(cfg *Config, get lookup) error {
	l := &envLoader{get: get}

	l.str("SERVER_HOST", &cfg.Server.Host)
	l.int("SERVER_PORT", &cfg.Server.Port)
	l.bool("SERVER_TLS_ENABLED", &cfg.Server.TLSEnabled)
	l.str("SERVER_CERT_FILE", &cfg.Server.CertFile)
	l.str("SERVER_KEY_FILE", &cfg.Server.KeyFile)

	l.str("LOG_LEVEL", &cfg.Log.Level)
	l.str("LOG_FORMAT", &cfg.Log.Format)

	l.str("STORE_KIND", &cfg.Store.Kind)
	l.str("STORE_DRIVER", &cfg.Store.Driver)
	l.str("STORE_DSN", &cfg.Store.DSN)
	l.int("STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns)

	l.str("VERSION_POLICY", &cfg.Service.VersionPolicy)

	l.str("JWT_SECRET", &cfg.Auth.JWT.Secret)
	l.str("JWT_ISSUER", &cfg.Auth.JWT.Issuer)
	l.duration("JWT_EXPIRES_IN", &cfg.Auth.JWT.ExpiresIn)

	l.int("RATE_LIMIT_REQUESTS", &cfg.RateLimit.Requests)
	l.duration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	l.str("MESSAGING_KIND", &cfg.Messaging.Kind)
	l.str("NATS_URL", &cfg.Messaging.NatsURL)
	l.str("REDIS_ADDR", &cfg.Messaging.RedisAddr)

	l.bool("MAIL_ENABLED", &cfg.Mail.Enabled)
	l.str("MAIL_HOST", &cfg.Mail.Host)
	l.int("MAIL_PORT", &cfg.Mail.Port)

	l.bool("POPULATE", &cfg.Populate)
	l.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	return l.err
}

func (l *envLoader) value(key string) (string, bool) {
	if l.err != nil {
		return "", false
	}
	v, ok := l.get(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (l *envLoader) fail(key, v string, err error) {
	l.err = fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, v, err)
}

func (l *envLoader) str(key string, dst *string) {
	if v, ok := l.value(key); ok {
		*dst = v
	}
}

func (l *envLoader) int(key string, dst *int) {
	if v, ok := l.value(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			l.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (l *envLoader) bool(key string, dst *bool) {
	if v, ok := l.value(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			l.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (l *envLoader) duration(key string, dst *time.Duration) {
	if v, ok := l.value(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			l.fail(key, v, err)
			return
		}
		*dst = d
	}
}
