package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/authsession/pkg/credentials"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report config keys (api.base_url) rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	var errs []error
	if cfg.Credentials.Backend == credentials.BackendPostgres {
		if cfg.Credentials.Postgres.Host == "" {
			errs = append(errs, errors.New("credentials.postgres.host is required for the postgres backend"))
		}
		if cfg.Credentials.Postgres.Database == "" {
			errs = append(errs, errors.New("credentials.postgres.database is required for the postgres backend"))
		}
	}
	if cfg.DevServer.JWT.AccessTokenDuration >= cfg.DevServer.JWT.RefreshTokenDuration {
		errs = append(errs, fmt.Errorf("devserver.jwt.access_token_duration (%s) must be shorter than refresh_token_duration (%s)",
			cfg.DevServer.JWT.AccessTokenDuration, cfg.DevServer.JWT.RefreshTokenDuration))
	}
	return errors.Join(errs...)
}
