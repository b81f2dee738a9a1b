// Package metrics 提供 Prometheus 指标：HTTP 请求计数与耗时、通知结果计数
package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pflanzen/errors"
	httpx "pflanzen/http"
	"pflanzen/http/basic"
)

const namespace = "pflanzen"

// 通知结果标签
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Recorder 指标记录器
type Recorder struct {
	registry      *prom.Registry
	requests      *prom.CounterVec
	duration      *prom.HistogramVec
	notifications *prom.CounterVec
}

// NewRecorder 创建并注册指标；reg 为 nil 时使用独立的新注册表
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Post-create notifications by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.requests, r.duration, r.notifications)
	return r
}

// Registry 底层注册表
func (r *Recorder) Registry() *prom.Registry { return r.registry }

// ObserveRequest 记录一次 HTTP 请求
func (r *Recorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncNotification 记录一次通知结果
func (r *Recorder) IncNotification(outcome string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(outcome).Inc()
}

// Middleware 以路由模式（而非原始路径）为标签记录请求
func (r *Recorder) Middleware() httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		start := time.Now()
		err := next()
		status := ctx.WrittenStatus()
		if err != nil && status == 0 {
			status = basic.StatusForCode(errors.GetErrorCode(errors.Normalize(err)))
		}
		r.ObserveRequest(ctx.GetMethod(), route(ctx), status, time.Since(start))
		return err
	}
}

// Handler GET /metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func route(ctx httpx.IHttpContext) string {
	if p := ctx.GetRequest().Pattern; p != "" {
		return p
	}
	return "unmatched"
}
