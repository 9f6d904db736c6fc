// Package prometheus implements the metrics interfaces on top of
// prometheus/client_golang. Import it for side effects to enable
// metrics.NewClientMetrics and metrics.NewServerMetrics.
package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/authsession/pkg/metrics"
)

func init() {
	metrics.RegisterClientMetricsConstructor(NewClientMetrics)
	metrics.RegisterServerMetricsConstructor(NewServerMetrics)
}

// latencyBuckets covers a fast LAN call up to the client request timeout.
var latencyBuckets = []float64{
	5,     // 5ms
	10,    // 10ms
	25,    // 25ms
	50,    // 50ms
	100,   // 100ms
	250,   // 250ms
	500,   // 500ms
	1000,  // 1s
	2500,  // 2.5s
	5000,  // 5s
	10000, // 10s - refresh timeout
	30000, // 30s - request timeout
}

// clientMetrics is the Prometheus implementation of metrics.ClientMetrics.
type clientMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	forcedLogouts   *prometheus.CounterVec
}

var (
	clientMu   sync.Mutex
	clientReg  *prometheus.Registry
	clientInst *clientMetrics
)

// NewClientMetrics returns the ClientMetrics bound to the current registry,
// creating it on first use. Returns nil if metrics are not enabled.
func NewClientMetrics() metrics.ClientMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	clientMu.Lock()
	defer clientMu.Unlock()
	if clientInst != nil && clientReg == reg {
		return clientInst
	}

	f := promauto.With(reg)
	clientInst = &clientMetrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsession_client_requests_total",
				Help: "Total API requests by method, endpoint and status code",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authsession_client_request_duration_milliseconds",
				Help:    "Duration of API round trips in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"method", "endpoint"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsession_client_retries_total",
				Help: "Requests replayed after a successful token refresh",
			},
			[]string{"endpoint"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsession_client_refresh_total",
				Help: "Token refresh outcomes; shared=true counts callers that joined an in-flight refresh",
			},
			[]string{"outcome", "shared"},
		),
		refreshDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "authsession_client_refresh_duration_milliseconds",
				Help:    "Time spent waiting for a token refresh in milliseconds",
				Buckets: latencyBuckets,
			},
		),
		forcedLogouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsession_client_forced_logouts_total",
				Help: "Forced logouts raised by the client",
			},
			[]string{"reason"},
		),
	}
	clientReg = reg
	return clientInst
}

func (m *clientMetrics) ObserveRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, endpoint, statusLabel(status)).Inc()
	m.requestDuration.WithLabelValues(method, endpoint).Observe(ms(duration))
}

func (m *clientMetrics) RecordRetry(endpoint string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(endpoint).Inc()
}

func (m *clientMetrics) RecordRefresh(outcome string, shared bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome, strconv.FormatBool(shared)).Inc()
	if !shared {
		m.refreshDuration.Observe(ms(duration))
	}
}

func (m *clientMetrics) RecordForcedLogout(reason string) {
	if m == nil {
		return
	}
	m.forcedLogouts.WithLabelValues(reason).Inc()
}

// statusLabel renders 0 (no response) as "error".
func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
