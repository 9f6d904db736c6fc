package cmdutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/authsession/internal/cli/output"
	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/config"
	"github.com/marmos91/authsession/pkg/credentials"
)

func withFlags(t *testing.T, f GlobalFlags) {
	t.Helper()
	saved := *Flags
	*Flags = f
	t.Cleanup(func() { *Flags = saved })
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.GetDefaultConfig()

	err := ApplyOverrides(cfg, &GlobalFlags{
		ServerURL:   "http://192.168.1.20:8000/",
		Ephemeral:   true,
		Verbose:     true,
		MetricsAddr: "127.0.0.1:9100",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.20:8000", cfg.API.BaseURL)
	assert.Equal(t, credentials.BackendMemory, cfg.Credentials.Backend)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestApplyOverrides_NoFlagsKeepsConfig(t *testing.T) {
	cfg := config.GetDefaultConfig()
	want := *cfg

	require.NoError(t, ApplyOverrides(cfg, &GlobalFlags{}))
	assert.Equal(t, want.API.BaseURL, cfg.API.BaseURL)
	assert.Equal(t, want.Credentials.Backend, cfg.Credentials.Backend)
	assert.Equal(t, want.Logging.Level, cfg.Logging.Level)
}

func TestApplyOverrides_InvalidServerURL(t *testing.T) {
	cfg := config.GetDefaultConfig()
	err := ApplyOverrides(cfg, &GlobalFlags{ServerURL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid flags")
}

func TestFriendlyError(t *testing.T) {
	assert.NoError(t, FriendlyError(nil))

	unauth := &apiclient.RequestError{Kind: apiclient.KindUnauthenticated}
	assert.Contains(t, FriendlyError(unauth).Error(), "authctl login")

	expired := fmt.Errorf("GET /orders: %w", &apiclient.RequestError{Kind: apiclient.KindSessionExpired})
	assert.Contains(t, FriendlyError(expired).Error(), "re-authenticate")

	failed := &apiclient.RequestError{Kind: apiclient.KindRequestFailed, StatusCode: 404, Message: "Order not found"}
	assert.Same(t, error(failed), FriendlyError(failed))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("any-key-will-do"))
	require.NoError(t, err)

	got, err := TokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestTokenExpiry_NoExpClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).
		SignedString([]byte("any-key-will-do"))
	require.NoError(t, err)

	got, err := TokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestTokenExpiry_Opaque(t *testing.T) {
	_, err := TokenExpiry("opaque-token")
	assert.Error(t, err)
}

type rowsFixture struct{}

func (rowsFixture) Headers() []string { return []string{"NAME"} }
func (rowsFixture) Rows() [][]string  { return [][]string{{"alice"}} }

func TestPrintResource(t *testing.T) {
	data := map[string]string{"name": "alice"}

	tests := []struct {
		format   string
		contains string
	}{
		{"table", "NAME"},
		{"json", `"name": "alice"`},
		{"yaml", "name: alice"},
		{"raw", `"name": "alice"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			withFlags(t, GlobalFlags{Output: tt.format})
			var buf bytes.Buffer
			require.NoError(t, PrintResource(&buf, data, rowsFixture{}))
			assert.Contains(t, buf.String(), tt.contains)
		})
	}
}

func TestPrintResource_RawBody(t *testing.T) {
	withFlags(t, GlobalFlags{Output: "raw"})
	var buf bytes.Buffer
	require.NoError(t, PrintResource(&buf, json.RawMessage(`{"a":1}`), rowsFixture{}))
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}

func TestPrinter_InvalidFormat(t *testing.T) {
	withFlags(t, GlobalFlags{Output: "xml"})
	_, err := Printer(&bytes.Buffer{})
	assert.Error(t, err)

	withFlags(t, GlobalFlags{Output: "json", NoColor: true})
	p, err := Printer(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, p.Format())
}

func TestBoolToYesNo(t *testing.T) {
	assert.Equal(t, "yes", BoolToYesNo(true))
	assert.Equal(t, "no", BoolToYesNo(false))
}

func TestEmptyOr(t *testing.T) {
	assert.Equal(t, "-", EmptyOr("", "-"))
	assert.Equal(t, "acme", EmptyOr("acme", "-"))
}
