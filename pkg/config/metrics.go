package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/authsession/pkg/metrics"
)

// MetricsResult is returned by InitializeMetrics. Server is nil when
// metrics are disabled.
type MetricsResult struct {
	Server *http.Server
}

// InitializeMetrics creates the Prometheus registry when metrics are enabled
// and returns an unstarted HTTP server exposing it on /metrics.
//
// Callers must import pkg/metrics/prometheus for its init() registrations.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	metrics.InitRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	return MetricsResult{
		Server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}
