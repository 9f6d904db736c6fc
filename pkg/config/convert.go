package config

import (
	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/internal/telemetry"
)

// ToLoggerConfig converts the logging section for logger.Init.
func (c *LoggingConfig) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Level,
		Format: c.Format,
		Output: c.Output,
	}
}

// ToTelemetryConfig converts the telemetry section for telemetry.Init.
func (c *TelemetryConfig) ToTelemetryConfig(serviceName, version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		SampleRate:     c.SampleRate,
	}
}

// ToProfilingConfig converts the profiling subsection for telemetry.InitProfiling.
func (c *ProfilingConfig) ToProfilingConfig(serviceName, version string) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        c.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       c.Endpoint,
		ProfileTypes:   c.ProfileTypes,
	}
}
