// Package cmdutil provides shared utilities for authctl commands.
package cmdutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marmos91/authsession/internal/cli/output"
	"github.com/marmos91/authsession/internal/cli/prompt"
	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/config"
	"github.com/marmos91/authsession/pkg/credentials"
)

// MinPasswordLength is enforced by the password prompts.
const MinPasswordLength = 8

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile  string
	ServerURL   string
	Output      string
	NoColor     bool
	Verbose     bool
	Ephemeral   bool
	MetricsAddr string
}

// LoadConfig loads the configuration named by --config and applies the
// global flag overrides on top of it.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := ApplyOverrides(cfg, Flags); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides copies command-line overrides into cfg and re-validates it.
func ApplyOverrides(cfg *config.Config, f *GlobalFlags) error {
	if f.ServerURL != "" {
		cfg.API.BaseURL = strings.TrimRight(f.ServerURL, "/")
	}
	if f.Ephemeral {
		cfg.Credentials.Backend = credentials.BackendMemory
	}
	if f.Verbose {
		cfg.Logging.Level = "DEBUG"
	}
	if f.MetricsAddr != "" {
		cfg.Metrics.Enabled = true
		config.ApplyDefaults(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// Printer returns a Printer for w using the global output flags.
func Printer(w io.Writer) (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format, !IsColorDisabled()), nil
}

// PrintResource prints a resource in the selected format.
// For table format, it uses the provided tableRenderer. Raw format falls
// back to JSON for anything that is not already a body.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	case output.FormatRaw:
		switch data.(type) {
		case []byte, json.RawMessage, string:
			return output.PrintRaw(w, data)
		}
		return output.PrintJSON(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(os.Stdout, format, !IsColorDisabled()).Success(msg)
}

// HandleAbort checks if error is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

// FriendlyError rewrites session errors into instructions for the user.
// Other errors are returned unchanged.
func FriendlyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apiclient.ErrUnauthenticated):
		return fmt.Errorf("not logged in. Run 'authctl login' first")
	case errors.Is(err, apiclient.ErrSessionExpired):
		return fmt.Errorf("session expired. Run 'authctl login' to re-authenticate")
	default:
		return err
	}
}

// TokenExpiry returns the exp claim of a JWT without verifying its
// signature. The zero time is returned for tokens without one.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
