package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently so client logs can be correlated with server logs.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// HTTP request
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyEndpoint   = "endpoint"
	KeyStatus     = "status"
	KeyAttempt    = "attempt"
	KeyDurationMs = "duration_ms"
	KeyServerURL  = "server_url"

	// Identity
	KeyUsername = "username"
	KeyUserID   = "user_id"
	KeyToken    = "token" // always redacted

	// Session lifecycle
	KeyReason     = "reason"
	KeyShared     = "shared"
	KeyGeneration = "generation"
	KeyOutcome    = "outcome"

	// Storage
	KeyBackend = "backend"
	KeyPath    = "path"

	KeyError = "error"
)

// TraceID creates a trace ID attribute
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// RequestID creates a request ID attribute
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method creates an HTTP method attribute
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Endpoint creates an API endpoint attribute
func Endpoint(path string) slog.Attr {
	return slog.String(KeyEndpoint, path)
}

// Status creates an HTTP status attribute
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// Attempt creates an attempt number attribute (1 = first try, 2 = retry)
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// DurationMs creates a duration attribute in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Username creates a username attribute
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// UserID creates a user ID attribute
func UserID(id string) slog.Attr {
	return slog.String(KeyUserID, id)
}

// Token creates a redacted token attribute. The raw value never reaches the log.
func Token(tok string) slog.Attr {
	return slog.String(KeyToken, Redact(tok))
}

// Reason creates a reason attribute
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}

// Backend creates a credential backend attribute
func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}

// Err creates an error attribute. Returns an empty attr for nil errors.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
