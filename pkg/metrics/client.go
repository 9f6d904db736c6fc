package metrics

import "time"

// Refresh outcomes.
const (
	RefreshSucceeded  = "succeeded"
	RefreshFailed     = "failed"
	RefreshSkipped    = "skipped"    // another caller already rotated the token
	RefreshSuperseded = "superseded" // login or logout landed during the exchange
)

// ClientMetrics records API client activity.
//
// A nil ClientMetrics is valid; use the package-level helpers, which check
// for nil, instead of calling methods directly.
type ClientMetrics interface {
	// ObserveRequest records one HTTP round trip. status is 0 when no
	// response was received.
	ObserveRequest(method, endpoint string, status int, duration time.Duration)

	// RecordRetry records a request replayed after a successful refresh.
	RecordRetry(endpoint string)

	// RecordRefresh records the outcome of a refresh. shared is true for
	// callers that joined an in-flight refresh instead of starting one.
	RecordRefresh(outcome string, shared bool, duration time.Duration)

	// RecordForcedLogout records a notification sent to the session layer.
	RecordForcedLogout(reason string)
}

// NewClientMetrics creates a Prometheus-backed ClientMetrics.
//
// Returns nil if metrics are not enabled or the prometheus implementation
// package has not been linked in.
//
//	import _ "github.com/marmos91/authsession/pkg/metrics/prometheus"
//
//	metrics.InitRegistry()
//	client := apiclient.New(baseURL, apiclient.WithMetrics(metrics.NewClientMetrics()))
func NewClientMetrics() ClientMetrics {
	if !IsEnabled() || newClientMetrics == nil {
		return nil
	}
	return newClientMetrics()
}

// newClientMetrics is set by pkg/metrics/prometheus. The indirection keeps
// this package free of the implementation.
var newClientMetrics func() ClientMetrics

// RegisterClientMetricsConstructor registers the ClientMetrics constructor.
func RegisterClientMetricsConstructor(constructor func() ClientMetrics) {
	newClientMetrics = constructor
}

// ObserveRequest records a round trip on m if m is non-nil.
func ObserveRequest(m ClientMetrics, method, endpoint string, status int, duration time.Duration) {
	if m != nil {
		m.ObserveRequest(method, endpoint, status, duration)
	}
}

// RecordRetry records a replayed request on m if m is non-nil.
func RecordRetry(m ClientMetrics, endpoint string) {
	if m != nil {
		m.RecordRetry(endpoint)
	}
}

// RecordRefresh records a refresh outcome on m if m is non-nil.
func RecordRefresh(m ClientMetrics, outcome string, shared bool, duration time.Duration) {
	if m != nil {
		m.RecordRefresh(outcome, shared, duration)
	}
}

// RecordForcedLogout records a forced logout on m if m is non-nil.
func RecordForcedLogout(m ClientMetrics, reason string) {
	if m != nil {
		m.RecordForcedLogout(reason)
	}
}
