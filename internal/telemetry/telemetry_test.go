package telemetry

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "authsession", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
	assert.NotNil(t, Tracer())
}

func TestStartClientSpanWithoutInit(t *testing.T) {
	ctx, span := StartClientSpan(context.Background(), SpanExecute, http.MethodGet, "/api/v1/orders",
		RequiresAuth(true), Attempt(1))
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()

	// No recording span, so no IDs leak into logs.
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestHelpersDoNotPanicWithoutSpan(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("refresh failed"))
		SetStatus(ctx, codes.Error, "failed")
		SetAttributes(ctx, HTTPStatusCode(401))
		AddEvent(ctx, "refresh.joined", RefreshShared(true))
	})
}

func TestInjectHTTPHeadersWithoutSpan(t *testing.T) {
	h := http.Header{}
	InjectHTTPHeaders(context.Background(), h)
	assert.Empty(t, h.Get("traceparent"))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFor(0.25).Description())
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPMethod", HTTPMethod("POST").Value.AsString(), "POST"},
		{"HTTPStatusCode", HTTPStatusCode(401).Value.AsInt64(), int64(401)},
		{"URLPath", URLPath("/api/v1/profile").Value.AsString(), "/api/v1/profile"},
		{"RequestID", RequestID("abc").Value.AsString(), "abc"},
		{"RefreshOutcome", RefreshOutcome("success").Value.AsString(), "success"},
		{"ErrorKind", ErrorKind("session_expired").Value.AsString(), "session_expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, AttrAttempt, string(Attempt(2).Key))
	assert.True(t, RequiresAuth(true).Value.AsBool())
}

func TestParseProfileType(t *testing.T) {
	for _, pt := range DefaultProfileTypes {
		_, err := parseProfileType(pt)
		assert.NoError(t, err, pt)
	}

	_, err := parseProfileType("heap")
	assert.Error(t, err)
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}
