package woo

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 请求管道指标，nil 安全
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	attempts *prometheus.HistogramVec
}

// NewMetrics 创建并注册指标，reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "woo",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Store API calls by resource group, method and outcome.",
		}, []string{"group", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "woo",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Wall time of a store API call including retries and backoff.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"group", "method"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "woo",
			Subsystem: "client",
			Name:      "request_attempts",
			Help:      "HTTP attempts made per store API call.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
		}, []string{"group"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.attempts)
	}
	return m
}

func (m *Metrics) observe(env *Envelope) {
	if m == nil || env == nil {
		return
	}
	d := env.Diagnostics
	m.requests.WithLabelValues(d.Group, d.Method, outcomeLabel(env)).Inc()
	m.duration.WithLabelValues(d.Group, d.Method).Observe(d.Duration.Seconds())
	m.attempts.WithLabelValues(d.Group).Observe(float64(d.Attempts))
}

var fixedCodes = map[string]bool{
	CodeNotConfigured:         true,
	CodePermissionDenied:      true,
	CodeRateLimitExceeded:     true,
	CodeInvalidArgument:       true,
	CodeMissingRequiredField:  true,
	CodeInvalidBatchPayload:   true,
	CodeTransportError:        true,
	CodeJSONError:             true,
	CodeUnsupportedReportType: true,
}

// outcomeLabel 平台返回的错误码按状态码分桶，标签取值有限
func outcomeLabel(env *Envelope) string {
	switch {
	case env.Success:
		return "success"
	case fixedCodes[env.ErrorCode]:
		return env.ErrorCode
	}
	switch status := env.Status(); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	default:
		return "platform_error"
	}
}
