// Package apiclient is the authenticated HTTP client for the remote API.
//
// Every call goes through Client.Execute, which attaches the stored access
// token, refreshes it once on a 401 through the Refresher (shared by all
// concurrent callers) and retries the request exactly once. Failures are
// always reported as *RequestError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/internal/telemetry"
	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/metrics"
	"github.com/marmos91/authsession/pkg/notifier"
)

const (
	// DefaultRequestTimeout bounds a single HTTP round trip.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultRefreshTimeout bounds the refresh exchange.
	DefaultRefreshTimeout = 10 * time.Second
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "authsession/dev"

	// HeaderRequestID carries a per-call correlation ID.
	HeaderRequestID = "X-Request-ID"

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes = 10 << 20
)

// Client is the authenticated API client.
type Client struct {
	baseURL        string
	host           string
	httpClient     *http.Client
	store          credentials.Store
	notifier       *notifier.Notifier
	metrics        metrics.ClientMetrics
	endpoints      Endpoints
	userAgent      string
	refreshTimeout time.Duration
	maxResponse    int64

	refresher *Refresher
}

// Option configures a Client.
type Option func(*Client)

// WithStore sets the credential store. Default: an in-memory store.
func WithStore(s credentials.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestTimeout sets the per-request timeout on the default HTTP client.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRefreshTimeout bounds the refresh exchange.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithNotifier sets the notifier used to announce forced logouts.
func WithNotifier(n *notifier.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithMetrics enables client metrics. nil disables them.
func WithMetrics(m metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithEndpoints overrides the auth endpoint table. Empty entries keep their
// defaults.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e.WithDefaults() }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxResponseBytes caps how much of a response body is read.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponse = n
		}
	}
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: DefaultRequestTimeout},
		endpoints:      DefaultEndpoints(),
		userAgent:      DefaultUserAgent,
		refreshTimeout: DefaultRefreshTimeout,
		maxResponse:    DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = credentials.NewMemoryStore()
	}
	if c.notifier == nil {
		c.notifier = notifier.New()
	}

	c.host = c.baseURL
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		c.host = u.Host
	}

	c.refresher = newRefresher(refresherConfig{
		store:    c.store,
		exchange: c.RefreshTokens,
		notifier: c.notifier,
		metrics:  c.metrics,
		timeout:  c.refreshTimeout,
	})
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the credential store the client reads tokens from.
func (c *Client) Store() credentials.Store {
	return c.store
}

// Notifier returns the notifier used for forced logouts.
func (c *Client) Notifier() *notifier.Notifier {
	return c.notifier
}

// Refresher returns the client's refresh coordinator.
func (c *Client) Refresher() *Refresher {
	return c.refresher
}

// Endpoints returns the auth endpoint table.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// RequestOptions describes one call to Execute.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	// Body is JSON-encoded once and reused for the retry.
	Body any
	// Headers are added to the request. They cannot override Authorization
	// on authenticated calls.
	Headers map[string]string
	// Public marks a call that must not carry the stored access token and
	// never triggers a refresh.
	Public bool
}

func (o *RequestOptions) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(o.Method)
}

// response is a fully-read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// Execute issues a request to endpoint and decodes the unwrapped response
// body into result (which may be nil).
//
// Authenticated calls (the default) fail with KindUnauthenticated before
// touching the network when no access token is stored. A 401 triggers one
// shared refresh; on success the request is replayed once with the new
// token, on failure the call ends with KindSessionExpired.
func (c *Client) Execute(ctx context.Context, endpoint string, opts *RequestOptions, result any) error {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.method()
	requestID := uuid.NewString()

	ctx, span := telemetry.StartClientSpan(ctx, telemetry.SpanExecute, method, endpoint,
		telemetry.ServerAddress(c.host),
		telemetry.RequestID(requestID),
		telemetry.RequiresAuth(!opts.Public),
	)
	defer span.End()

	lc := logger.NewLogContext(method, endpoint, requestID).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	if parent := logger.FromContext(ctx); parent != nil {
		lc.Username = parent.Username
	}
	ctx = logger.WithContext(ctx, lc)

	err := c.execute(ctx, method, endpoint, requestID, opts, result)
	if err != nil {
		telemetry.SetAttributes(ctx, telemetry.ErrorKind(KindOf(err).String()))
		telemetry.RecordError(ctx, err)
		logger.DebugCtx(ctx, "request failed", logger.KeyReason, KindOf(err).String(), logger.KeyError, err)
		return err
	}
	logger.DebugCtx(ctx, "request completed", logger.KeyDurationMs, lc.DurationMs())
	return nil
}

func (c *Client) execute(ctx context.Context, method, endpoint, requestID string, opts *RequestOptions, result any) error {
	body, err := encodeJSON(opts.Body)
	if err != nil {
		return &RequestError{Kind: KindRequestFailed, Endpoint: endpoint, Message: "invalid request body", Err: err}
	}

	var token string
	if !opts.Public {
		creds, err := c.store.Read(ctx)
		if err != nil {
			return unauthenticated(endpoint, fmt.Errorf("read credentials: %w", err))
		}
		if creds.AccessToken == "" {
			return unauthenticated(endpoint, nil)
		}
		token = creds.AccessToken
	}

	resp, err := c.send(ctx, method, endpoint, requestID, body, opts.Headers, token, 1)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && !opts.Public {
		logger.InfoCtx(ctx, "access token rejected, refreshing", logger.Token(token))

		refreshed, err := c.refresher.RefreshIfStale(ctx, token)
		if err != nil {
			return connectivity(endpoint, c.host, err)
		}
		if !refreshed {
			return sessionExpired(endpoint, resp.status, nil)
		}

		creds, err := c.store.Read(ctx)
		if err != nil || creds.AccessToken == "" {
			return sessionExpired(endpoint, resp.status, err)
		}

		metrics.RecordRetry(c.metrics, endpoint)
		resp, err = c.send(ctx, method, endpoint, requestID, body, opts.Headers, creds.AccessToken, 2)
		if err != nil {
			return err
		}
		if resp.status == http.StatusUnauthorized {
			logger.WarnCtx(ctx, "refreshed token rejected")
			return sessionExpired(endpoint, resp.status, nil)
		}
	}

	if !resp.ok() {
		return requestFailed(endpoint, resp.status, resp.body)
	}

	if err := decodeBody(resp.body, result); err != nil {
		return &RequestError{
			Kind:       KindRequestFailed,
			StatusCode: resp.status,
			Endpoint:   endpoint,
			Message:    "invalid response from server",
			Err:        err,
		}
	}
	return nil
}

// send performs one HTTP round trip and reads the whole body. Transport
// failures come back as KindConnectivity errors.
func (c *Client) send(ctx context.Context, method, endpoint, requestID string, body []byte, headers map[string]string, token string, attempt int) (*response, error) {
	ctx, span := telemetry.StartClientSpan(ctx, telemetry.SpanSend, method, endpoint, telemetry.Attempt(attempt))
	defer span.End()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, &RequestError{Kind: KindRequestFailed, Endpoint: endpoint, Message: "invalid request", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	telemetry.InjectHTTPHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRequest(c.metrics, method, endpoint, 0, time.Since(start))
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "request did not reach the server", logger.KeyAttempt, attempt, logger.KeyError, err)
		return nil, connectivity(endpoint, c.host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse))
	metrics.ObserveRequest(c.metrics, method, endpoint, resp.StatusCode, time.Since(start))
	telemetry.SetAttributes(ctx, telemetry.HTTPStatusCode(resp.StatusCode))
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, connectivity(endpoint, c.host, fmt.Errorf("failed to read response body: %w", err))
	}

	logger.DebugCtx(ctx, "response received",
		logger.KeyAttempt, attempt,
		logger.KeyStatus, resp.StatusCode,
		logger.KeyDurationMs, logger.Duration(start))

	return &response{status: resp.StatusCode, body: respBody}, nil
}

// encodeJSON marshals the request body once. A nil body or json.RawMessage
// passes through.
func encodeJSON(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, nil
}
