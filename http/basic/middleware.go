package basic

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"pflanzen/cache"
	"pflanzen/errors"
	httpx "pflanzen/http"
	"pflanzen/logging"
)

// HeaderRequestID 请求ID头
const HeaderRequestID = "X-Request-ID"

// RequestID 为每个请求分配ID（沿用客户端提供的值），写入响应头与请求上下文
func RequestID() httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		id := ctx.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.SetHeader(HeaderRequestID, id)
		rc := WithRequestID(ctx.GetContext(), id)
		ctx.SetContext(WithIPAddress(rc, ctx.ClientIP()))
		return next()
	}
}

// Logging 记录方法、路径、状态码与耗时
func Logging(logger logging.Logger) httpx.Middleware {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return func(ctx httpx.IHttpContext, next func() error) error {
		start := time.Now()
		err := next()
		status := ctx.WrittenStatus()
		if err != nil && status == 0 {
			status = StatusForCode(errors.GetErrorCode(errors.Normalize(err)))
		}
		fields := []logging.Field{
			logging.String("method", ctx.GetMethod()),
			logging.String("path", ctx.GetPath()),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
		}
		if status >= 500 {
			logger.Warn(ctx.GetContext(), "http request", fields...)
		} else {
			logger.Info(ctx.GetContext(), "http request", fields...)
		}
		return err
	}
}

// Recovery 捕获 panic 并转换为 500
func Recovery(logger logging.Logger) httpx.Middleware {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return func(ctx httpx.IHttpContext, next func() error) (err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error(ctx.GetContext(), "panic recovered",
					logging.Any("panic", p), logging.String("stack", string(debug.Stack())))
				err = errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("panic: %v", p))
			}
		}()
		return next()
	}
}

// SecurityHeaders 设置常用安全响应头
func SecurityHeaders() httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		ctx.SetHeader("X-Content-Type-Options", "nosniff")
		ctx.SetHeader("X-Frame-Options", "SAMEORIGIN")
		ctx.SetHeader("Referrer-Policy", "no-referrer")
		ctx.SetHeader("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'")
		return next()
	}
}

// RateLimitConfig 按客户端IP限流配置
type RateLimitConfig struct {
	// 窗口内允许的请求数
	Requests int
	// 窗口长度
	Window time.Duration
	// 最多跟踪的客户端数量
	MaxClients int
}

// DefaultRateLimitConfig 15 分钟 100 次
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Requests: 100, Window: 15 * time.Minute, MaxClients: 10000}
}

// RateLimit 按客户端IP的令牌桶限流，超出返回 429
func RateLimit(config RateLimitConfig) httpx.Middleware {
	if config.Requests <= 0 || config.Window <= 0 {
		config = DefaultRateLimitConfig()
	}
	limiters := cache.New[string, *rate.Limiter](cache.Config{
		Name:    "ratelimit",
		MaxSize: config.MaxClients,
		TTL:     config.Window,
	})
	every := rate.Every(config.Window / time.Duration(config.Requests))
	retryAfter := strconv.Itoa(int((config.Window / time.Duration(config.Requests)).Seconds()) + 1)

	return func(ctx httpx.IHttpContext, next func() error) error {
		limiter := limiters.GetOrCreate(ctx.ClientIP(), func() *rate.Limiter {
			return rate.NewLimiter(every, config.Requests)
		})
		if !limiter.Allow() {
			ctx.SetHeader("Retry-After", retryAfter)
			return errors.NewError(errors.ErrCodeTooManyRequests, "Zu viele Anfragen, bitte spaeter erneut versuchen")
		}
		return next()
	}
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig 默认跨域配置，暴露 ETag 与 Location 供前端读取
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "If-Match", "If-None-Match"},
		ExposeHeaders: []string{"ETag", "Location"},
		MaxAge:        86400,
	}
}

// CORS 设置跨域响应头；预检请求直接以 204 结束
func CORS(config CORSConfig) httpx.Middleware {
	allowAll := slices.Contains(config.AllowOrigins, "*")
	return func(ctx httpx.IHttpContext, next func() error) error {
		origin := ctx.GetHeader("Origin")
		if origin == "" {
			return next()
		}
		switch {
		case allowAll && !config.AllowCredentials:
			ctx.SetHeader("Access-Control-Allow-Origin", "*")
		case allowAll || slices.Contains(config.AllowOrigins, origin):
			ctx.SetHeader("Access-Control-Allow-Origin", origin)
			ctx.SetHeader("Vary", "Origin")
		default:
			return next()
		}
		if config.AllowCredentials {
			ctx.SetHeader("Access-Control-Allow-Credentials", "true")
		}
		if len(config.ExposeHeaders) > 0 {
			ctx.SetHeader("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
		}
		if ctx.GetMethod() != http.MethodOptions {
			return next()
		}
		ctx.SetHeader("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))
		ctx.SetHeader("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
		if config.MaxAge > 0 {
			ctx.SetHeader("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}
