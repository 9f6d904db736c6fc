package devserver

import (
	"os"
	"time"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/pkg/credentials"
)

// EnvJWTSecret overrides Config.JWT.Secret.
const EnvJWTSecret = "AUTHSESSION_DEVSERVER_JWT_SECRET"

// Config configures the development auth server.
type Config struct {
	// Listen is the TCP address to bind.
	// Default: "127.0.0.1:8000"
	Listen string `mapstructure:"listen" yaml:"listen"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	JWT JWTConfig `mapstructure:"jwt" yaml:"jwt"`

	// Users are created at startup.
	Users []SeedUser `mapstructure:"users" yaml:"users,omitempty" validate:"dive"`
}

// JWTConfig configures token generation.
type JWTConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	// AUTHSESSION_DEVSERVER_JWT_SECRET takes precedence.
	Secret string `mapstructure:"secret" yaml:"secret"`

	// Issuer is the iss claim.
	// Default: "authsession-devserver"
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	// AccessTokenDuration is kept short so clients hit refresh often.
	// Default: 1m
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" yaml:"access_token_duration"`

	// RefreshTokenDuration is the lifetime of a refresh token.
	// Default: 24h
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" yaml:"refresh_token_duration"`
}

// SeedUser is an account created when the server starts.
type SeedUser struct {
	Email        string                   `mapstructure:"email" yaml:"email" validate:"required,email"`
	Password     string                   `mapstructure:"password" yaml:"password" validate:"required"`
	FirstName    string                   `mapstructure:"first_name" yaml:"first_name,omitempty"`
	LastName     string                   `mapstructure:"last_name" yaml:"last_name,omitempty"`
	CustomerType credentials.CustomerType `mapstructure:"customer_type" yaml:"customer_type,omitempty"`
	CompanyName  string                   `mapstructure:"company_name" yaml:"company_name,omitempty"`
	Role         string                   `mapstructure:"role" yaml:"role,omitempty"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8000"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "authsession-devserver"
	}
	if c.JWT.AccessTokenDuration == 0 {
		c.JWT.AccessTokenDuration = time.Minute
	}
	if c.JWT.RefreshTokenDuration == 0 {
		c.JWT.RefreshTokenDuration = 24 * time.Hour
	}
}

// GetJWTSecret returns the JWT secret, preferring the environment variable.
func (c *Config) GetJWTSecret() string {
	envSecret := os.Getenv(EnvJWTSecret)
	if envSecret != "" {
		if c.JWT.Secret != "" && c.JWT.Secret != envSecret {
			logger.Warn("JWT secret from environment variable overrides config file value",
				"env_var", EnvJWTSecret)
		}
		return envSecret
	}
	return c.JWT.Secret
}
