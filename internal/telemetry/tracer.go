package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow OpenTelemetry semantic conventions.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrURLPath        = "url.path"
	AttrServerAddress  = "server.address"
	AttrRequestID      = "http.request.id"

	AttrRequiresAuth   = "auth.required"
	AttrAttempt        = "auth.attempt"
	AttrRefreshShared  = "auth.refresh.shared"
	AttrRefreshOutcome = "auth.refresh.outcome"
	AttrErrorKind      = "auth.error.kind"
	AttrUserID         = "user.id"
	AttrStoreBackend   = "credentials.backend"
)

// Span names.
const (
	SpanExecute = "apiclient.execute"
	SpanSend    = "apiclient.send"
	SpanRefresh = "apiclient.refresh"
	SpanLogin   = "session.login"
	SpanLogout  = "session.logout"
)

// HTTPMethod returns the HTTP method attribute.
func HTTPMethod(method string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, method)
}

// HTTPStatusCode returns the HTTP status attribute.
func HTTPStatusCode(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatusCode, code)
}

// URLPath returns the request path attribute.
func URLPath(path string) attribute.KeyValue {
	return attribute.String(AttrURLPath, path)
}

// ServerAddress returns the API host attribute.
func ServerAddress(addr string) attribute.KeyValue {
	return attribute.String(AttrServerAddress, addr)
}

// RequestID returns the X-Request-ID attribute.
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// RequiresAuth returns whether the call carried a bearer credential.
func RequiresAuth(required bool) attribute.KeyValue {
	return attribute.Bool(AttrRequiresAuth, required)
}

// Attempt returns the attempt number (1 = original, 2 = retry after refresh).
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// RefreshShared returns whether the caller joined an in-flight refresh.
func RefreshShared(shared bool) attribute.KeyValue {
	return attribute.Bool(AttrRefreshShared, shared)
}

// RefreshOutcome returns the refresh outcome attribute.
func RefreshOutcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrRefreshOutcome, outcome)
}

// ErrorKind returns the request error kind attribute.
func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

// UserID returns the user ID attribute.
func UserID(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

// StoreBackend returns the credential backend attribute.
func StoreBackend(name string) attribute.KeyValue {
	return attribute.String(AttrStoreBackend, name)
}

// StartClientSpan starts a client-kind span for an outbound API call.
func StartClientSpan(ctx context.Context, name, method, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{HTTPMethod(method), URLPath(path)}, attrs...)
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...),
	)
}

// StartInternalSpan starts an internal span for session bookkeeping.
func StartInternalSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}
