package config

import (
	"strings"

	"github.com/marmos91/authsession/internal/bytesize"
	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/credentials"
)

// DefaultBaseURL is the backend used when none is configured. It matches
// the dev server's default listen address.
const DefaultBaseURL = "http://127.0.0.1:8000"

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyCredentialsDefaults(&cfg.Credentials)
	cfg.DevServer.ApplyDefaults()
}

// applyLoggingDefaults sets logging defaults and normalizes values.
// Logs go to stderr because commands print their results on stdout.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "WARN"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets the port only when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = apiclient.DefaultRequestTimeout
	}
	if cfg.RefreshTimeout == 0 {
		cfg.RefreshTimeout = apiclient.DefaultRefreshTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = apiclient.DefaultUserAgent
	}
	if cfg.MaxResponseSize == 0 {
		cfg.MaxResponseSize = 10 * bytesize.MiB
	}
	cfg.Endpoints = cfg.Endpoints.WithDefaults()
}

func applyCredentialsDefaults(cfg *credentials.Config) {
	if cfg.Backend == "" {
		cfg.Backend = credentials.BackendFile
	}
	cfg.Backend = strings.ToLower(cfg.Backend)

	if cfg.Backend == credentials.BackendPostgres {
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		if cfg.Postgres.SSLMode == "" {
			cfg.Postgres.SSLMode = "disable"
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
