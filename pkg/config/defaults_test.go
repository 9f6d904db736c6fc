package config

import (
	"testing"
	"time"

	"github.com/marmos91/authsession/internal/bytesize"
	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/metrics"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected default log level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("Expected default base URL, got %q", cfg.API.BaseURL)
	}
	if cfg.API.RequestTimeout != 30*time.Second {
		t.Errorf("Expected default request timeout 30s, got %v", cfg.API.RequestTimeout)
	}
	if cfg.API.RefreshTimeout != 10*time.Second {
		t.Errorf("Expected default refresh timeout 10s, got %v", cfg.API.RefreshTimeout)
	}
	if cfg.API.MaxResponseSize != 10*bytesize.MiB {
		t.Errorf("Expected default max response size 10MiB, got %v", cfg.API.MaxResponseSize)
	}
	if cfg.API.Endpoints.ForgotPassword != "/api/v1/auth/forgot-password" {
		t.Errorf("Expected default forgot-password endpoint, got %q", cfg.API.Endpoints.ForgotPassword)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default OTLP endpoint, got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Endpoint != "http://localhost:4040" {
		t.Errorf("Expected default Pyroscope endpoint, got %q", cfg.Telemetry.Profiling.Endpoint)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no port while metrics are disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Credentials(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Credentials.Backend != credentials.BackendFile {
		t.Errorf("Expected default backend 'file', got %q", cfg.Credentials.Backend)
	}

	cfg = &Config{Credentials: credentials.Config{Backend: "Postgres"}}
	ApplyDefaults(cfg)
	if cfg.Credentials.Backend != credentials.BackendPostgres {
		t.Errorf("Expected backend normalized to 'postgres', got %q", cfg.Credentials.Backend)
	}
	if cfg.Credentials.Postgres.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Credentials.Postgres.Port)
	}
	if cfg.Credentials.Postgres.SSLMode != "disable" {
		t.Errorf("Expected default sslmode 'disable', got %q", cfg.Credentials.Postgres.SSLMode)
	}
}

func TestApplyDefaults_DevServer(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.DevServer.Listen != "127.0.0.1:8000" {
		t.Errorf("Expected default listen address, got %q", cfg.DevServer.Listen)
	}
	if cfg.DevServer.JWT.AccessTokenDuration != time.Minute {
		t.Errorf("Expected default access token duration 1m, got %v", cfg.DevServer.JWT.AccessTokenDuration)
	}
	if cfg.DevServer.JWT.RefreshTokenDuration != 24*time.Hour {
		t.Errorf("Expected default refresh token duration 24h, got %v", cfg.DevServer.JWT.RefreshTokenDuration)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "json",
			Output: "/var/log/authctl.log",
		},
		API: APIConfig{
			BaseURL:        "http://10.0.0.9:8080",
			RequestTimeout: 2 * time.Second,
			UserAgent:      "shop-app/4.1",
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/authctl.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.API.BaseURL != "http://10.0.0.9:8080" {
		t.Errorf("Expected explicit base URL to be preserved, got %q", cfg.API.BaseURL)
	}
	if cfg.API.RequestTimeout != 2*time.Second {
		t.Errorf("Expected explicit timeout to be preserved, got %v", cfg.API.RequestTimeout)
	}
	if cfg.API.UserAgent != "shop-app/4.1" {
		t.Errorf("Expected explicit user agent to be preserved, got %q", cfg.API.UserAgent)
	}
}

func TestInitializeMetrics(t *testing.T) {
	t.Cleanup(metrics.Reset)

	if res := InitializeMetrics(GetDefaultConfig()); res.Server != nil {
		t.Error("Expected no metrics server while metrics are disabled")
	}
	if metrics.IsEnabled() {
		t.Error("Expected registry to stay uninitialized")
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	res := InitializeMetrics(cfg)
	if res.Server == nil {
		t.Fatal("Expected a metrics server when enabled")
	}
	if res.Server.Addr != ":9090" {
		t.Errorf("Expected metrics address ':9090', got %q", res.Server.Addr)
	}
	if !metrics.IsEnabled() {
		t.Error("Expected registry to be initialized")
	}
}
