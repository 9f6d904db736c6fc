package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/authsession/pkg/metrics"
)

// serverMetrics is the Prometheus implementation of metrics.ServerMetrics.
type serverMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensIssued    *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
}

var (
	serverMu   sync.Mutex
	serverReg  *prometheus.Registry
	serverInst *serverMetrics
)

// NewServerMetrics returns the ServerMetrics bound to the current registry.
// Returns nil if metrics are not enabled.
func NewServerMetrics() metrics.ServerMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	serverMu.Lock()
	defer serverMu.Unlock()
	if serverInst != nil && serverReg == reg {
		return serverInst
	}

	f := promauto.With(reg)
	serverInst = &serverMetrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsession_devserver_requests_total",
				Help: "Requests served by the development server",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authsession_devserver_request_duration_milliseconds",
				Help:    "Handler latency in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"method", "route"},
		),
		tokensIssued: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsession_devserver_tokens_issued_total",
				Help: "Token pairs issued, by kind (login, refresh)",
			},
			[]string{"kind"},
		),
		authFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsession_devserver_auth_failures_total",
				Help: "Rejected credentials, by reason",
			},
			[]string{"reason"},
		),
	}
	serverReg = reg
	return serverInst
}

func (m *serverMetrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(ms(duration))
}

func (m *serverMetrics) RecordTokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

func (m *serverMetrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}
