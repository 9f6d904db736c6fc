package metrics

import "time"

// ServerMetrics records development server activity.
type ServerMetrics interface {
	ObserveHTTP(method, route string, status int, duration time.Duration)
	RecordTokenIssued(kind string)
	RecordAuthFailure(reason string)
}

// NewServerMetrics creates a Prometheus-backed ServerMetrics, or nil when
// metrics are disabled.
func NewServerMetrics() ServerMetrics {
	if !IsEnabled() || newServerMetrics == nil {
		return nil
	}
	return newServerMetrics()
}

var newServerMetrics func() ServerMetrics

// RegisterServerMetricsConstructor registers the ServerMetrics constructor.
func RegisterServerMetricsConstructor(constructor func() ServerMetrics) {
	newServerMetrics = constructor
}

// ObserveHTTP records a served request on m if m is non-nil.
func ObserveHTTP(m ServerMetrics, method, route string, status int, duration time.Duration) {
	if m != nil {
		m.ObserveHTTP(method, route, status, duration)
	}
}

// RecordTokenIssued records an issued token on m if m is non-nil.
func RecordTokenIssued(m ServerMetrics, kind string) {
	if m != nil {
		m.RecordTokenIssued(kind)
	}
}

// RecordAuthFailure records a rejected credential on m if m is non-nil.
func RecordAuthFailure(m ServerMetrics, reason string) {
	if m != nil {
		m.RecordAuthFailure(reason)
	}
}
