package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a RequestError.
type Kind int

const (
	// KindRequestFailed is a non-success response from the server, or a 401
	// on a call that does not carry credentials.
	KindRequestFailed Kind = iota

	// KindUnauthenticated means the call required credentials but none are
	// stored. No network call was made.
	KindUnauthenticated

	// KindSessionExpired means a refresh was attempted and failed, or the
	// retried request was rejected again. The session is over.
	KindSessionExpired

	// KindConnectivity is a transport failure: DNS, refused connection,
	// timeout, cancelled context. No response was received.
	KindConnectivity
)

// String returns the snake_case name used in logs and span attributes.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindSessionExpired:
		return "session_expired"
	case KindConnectivity:
		return "connectivity"
	default:
		return "request_failed"
	}
}

// Sentinels for errors.Is. Every *RequestError matches exactly one of them.
var (
	ErrRequestFailed   = errors.New("request failed")
	ErrUnauthenticated = errors.New("not logged in")
	ErrSessionExpired  = errors.New("session expired, please log in again")
	ErrConnectivity    = errors.New("cannot reach the API server")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindSessionExpired:
		return ErrSessionExpired
	case KindConnectivity:
		return ErrConnectivity
	default:
		return ErrRequestFailed
	}
}

// RequestError is the only error type returned by Client request methods.
// Raw transport and decode errors are available through Unwrap.
type RequestError struct {
	Kind       Kind
	StatusCode int // 0 when no response was received
	Endpoint   string
	Message    string // human-readable, suitable for display
	Err        error  // underlying cause, if any
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.sentinel().Error()
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *RequestError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// IsNotFound returns true for a 404 response.
func (e *RequestError) IsNotFound() bool {
	return e.Kind == KindRequestFailed && e.StatusCode == 404
}

// IsConflict returns true for a 409 response.
func (e *RequestError) IsConflict() bool {
	return e.Kind == KindRequestFailed && e.StatusCode == 409
}

// IsValidationError returns true for a 400 or 422 response.
func (e *RequestError) IsValidationError() bool {
	return e.Kind == KindRequestFailed && (e.StatusCode == 400 || e.StatusCode == 422)
}

// AsRequestError extracts a *RequestError from err.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindRequestFailed if err is not a
// *RequestError.
func KindOf(err error) Kind {
	if re, ok := AsRequestError(err); ok {
		return re.Kind
	}
	return KindRequestFailed
}

func unauthenticated(endpoint string, cause error) *RequestError {
	return &RequestError{
		Kind:     KindUnauthenticated,
		Endpoint: endpoint,
		Message:  ErrUnauthenticated.Error(),
		Err:      cause,
	}
}

func sessionExpired(endpoint string, status int, cause error) *RequestError {
	return &RequestError{
		Kind:       KindSessionExpired,
		StatusCode: status,
		Endpoint:   endpoint,
		Message:    ErrSessionExpired.Error(),
		Err:        cause,
	}
}

func requestFailed(endpoint string, status int, body []byte) *RequestError {
	return &RequestError{
		Kind:       KindRequestFailed,
		StatusCode: status,
		Endpoint:   endpoint,
		Message:    ExtractMessage(body, status),
	}
}

func connectivity(endpoint, host string, cause error) *RequestError {
	msg := fmt.Sprintf("cannot reach %s: check that the server is running and that you are on the same network", host)
	return &RequestError{
		Kind:     KindConnectivity,
		Endpoint: endpoint,
		Message:  msg,
		Err:      cause,
	}
}

// ExtractMessage pulls a human-readable message out of an error response
// body. Fields are tried in order: detail, error.message, error, message.
// Falls back to "Request failed with status {code}".
func ExtractMessage(body []byte, status int) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := detailMessage(payload["detail"]); msg != "" {
			return msg
		}
		if raw, ok := payload["error"]; ok {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			if msg := stringValue(raw); msg != "" {
				return msg
			}
		}
		if msg := stringValue(payload["message"]); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("Request failed with status %d", status)
}

// detailMessage accepts a plain string or a list of validation items
// ({"msg": "..."}), joined with "; ".
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if msg := stringValue(raw); msg != "" {
		return msg
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
