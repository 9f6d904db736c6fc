package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/authsession/internal/devserver"
	"github.com/marmos91/authsession/pkg/credentials"
)

const configHeader = `# authsession Configuration File
#
# Every key can be overridden by an environment variable:
#   api.base_url          -> AUTHSESSION_API_BASE_URL
#   logging.level         -> AUTHSESSION_LOGGING_LEVEL
#   devserver.jwt.secret  -> AUTHSESSION_DEVSERVER_JWT_SECRET
#
# Durations use Go syntax ("30s", "5m"); sizes accept "10MiB", "512KB".

`

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg, err := sampleConfig()
	if err != nil {
		return err
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), body...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// sampleConfig is the default config plus a random dev server secret and
// one demo account.
func sampleConfig() (*Config, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INFO"
	cfg.DevServer.JWT.Secret = secret
	cfg.DevServer.Users = []devserver.SeedUser{{
		Email:        "demo@example.com",
		Password:     "demo-password",
		FirstName:    "Demo",
		LastName:     "User",
		CustomerType: credentials.CustomerIndividual,
	}}
	return cfg, nil
}

// generateSecret returns 32 random bytes hex-encoded (64 characters).
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
