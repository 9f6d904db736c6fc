package apiclient

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/internal/telemetry"
	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/metrics"
	"github.com/marmos91/authsession/pkg/notifier"
)

var (
	// ErrNoRefreshToken is the forced-logout reason when the store holds no
	// usable refresh token.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrEmptyTokenResponse is the forced-logout reason when the refresh
	// endpoint answered 2xx without an access token.
	ErrEmptyTokenResponse = errors.New("refresh response carried no access token")
)

// exchangeFunc trades a refresh token for a new token pair.
type exchangeFunc func(ctx context.Context, refreshToken string) (*TokenResponse, error)

// refreshKey is the only singleflight key: a Client has one session.
const refreshKey = "refresh"

// Refresher coordinates token refreshes so that at most one exchange is in
// flight per Client.
//
// Callers that see a refresh in flight join it through a singleflight.Group
// and share its outcome. The group forgets the call before publishing the
// result, so a 401 observed after that starts a new refresh.
type Refresher struct {
	group    singleflight.Group
	inFlight atomic.Bool

	store    credentials.Store
	exchange exchangeFunc
	notifier *notifier.Notifier
	metrics  metrics.ClientMetrics
	timeout  time.Duration
}

type refresherConfig struct {
	store    credentials.Store
	exchange exchangeFunc
	notifier *notifier.Notifier
	metrics  metrics.ClientMetrics
	timeout  time.Duration
}

func newRefresher(cfg refresherConfig) *Refresher {
	if cfg.timeout <= 0 {
		cfg.timeout = DefaultRefreshTimeout
	}
	return &Refresher{
		store:    cfg.store,
		exchange: cfg.exchange,
		notifier: cfg.notifier,
		metrics:  cfg.metrics,
		timeout:  cfg.timeout,
	}
}

// InFlight reports whether a refresh is currently running.
func (r *Refresher) InFlight() bool {
	return r.inFlight.Load()
}

// Refresh exchanges the stored refresh token for a new pair, or joins the
// exchange already in flight.
//
// It returns true once new tokens are persisted. It returns false when the
// refresh was denied or failed, in which case the store has been cleared and
// the notifier told, and also when a login or logout landed while the
// exchange was running, in which case its result was discarded. The error
// is non-nil only if ctx ended before the shared result was ready; the
// exchange keeps running for other callers.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	return r.RefreshIfStale(ctx, "")
}

// RefreshIfStale is Refresh for a caller whose request was rejected while
// carrying stale. If the store already holds a different access token, a
// refresh finished after that request was sent and the caller can simply
// retry: true is returned without a network call.
func (r *Refresher) RefreshIfStale(ctx context.Context, stale string) (bool, error) {
	start := time.Now()

	// The exchange outlives the caller that started it: other callers are
	// waiting on the same result.
	detached := context.WithoutCancel(ctx)
	var led bool
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		led = true
		return r.run(detached, stale), nil
	})

	select {
	case res := <-ch:
		result := res.Val.(string)
		if !led {
			logger.DebugCtx(ctx, "joined in-flight refresh", logger.KeyShared, true, logger.KeyOutcome, result)
			metrics.RecordRefresh(r.metrics, result, true, time.Since(start))
		}
		return succeeded(result), nil
	case <-ctx.Done():
		return false, fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	}
}

// run performs one refresh and returns its outcome. It runs once per flight.
func (r *Refresher) run(ctx context.Context, stale string) string {
	r.inFlight.Store(true)
	defer r.inFlight.Store(false)

	start := time.Now()
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanRefresh)
	defer span.End()

	result := r.exchangeAndPersist(ctx, stale)

	telemetry.SetAttributes(ctx, telemetry.RefreshOutcome(result))
	metrics.RecordRefresh(r.metrics, result, false, time.Since(start))
	logger.InfoCtx(ctx, "token refresh finished",
		logger.KeyOutcome, result,
		logger.KeyDurationMs, logger.Duration(start))
	return result
}

// exchangeAndPersist trades the stored refresh token for a new pair. Any
// failure clears the store and raises a forced logout. Only the network
// exchange is bounded by the refresh timeout; store access runs to
// completion.
//
// Writes happen only while the session generation read at the start is
// still current, so a login or logout that lands during the exchange wins.
func (r *Refresher) exchangeAndPersist(ctx context.Context, stale string) string {
	gen := r.notifier.Generation()

	creds, err := r.store.Read(ctx)
	if err != nil {
		return r.fail(ctx, gen, fmt.Errorf("read credentials: %w", err))
	}
	if stale != "" && creds.Complete() && creds.AccessToken != stale {
		logger.DebugCtx(ctx, "token already rotated, skipping refresh")
		return metrics.RefreshSkipped
	}
	if creds.RefreshToken == "" || !creds.Complete() {
		return r.fail(ctx, gen, ErrNoRefreshToken)
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	tokens, err := r.exchange(exchangeCtx, creds.RefreshToken)
	cancel()
	if err != nil {
		return r.fail(ctx, gen, err)
	}
	if tokens.AccessToken == "" {
		return r.fail(ctx, gen, ErrEmptyTokenResponse)
	}

	next := &credentials.Credentials{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         creds.User,
	}
	// Servers that do not rotate refresh tokens omit it from the response.
	if next.RefreshToken == "" {
		next.RefreshToken = creds.RefreshToken
	}
	if tokens.User != nil {
		next.User = tokens.User
	}

	var writeErr error
	if !r.notifier.IfCurrent(gen, func() { writeErr = r.store.Write(ctx, next) }) {
		return r.superseded(ctx, gen)
	}
	if writeErr != nil {
		return r.fail(ctx, gen, fmt.Errorf("persist refreshed credentials: %w", writeErr))
	}

	logger.DebugCtx(ctx, "credentials refreshed", logger.Token(next.AccessToken))
	r.notifier.NotifyRefreshed(ctx, next.AccessToken, next.RefreshToken)
	return metrics.RefreshSucceeded
}

// fail clears the store and raises a forced logout, unless the session
// changed since gen.
func (r *Refresher) fail(ctx context.Context, gen uint64, reason error) string {
	current := r.notifier.IfCurrent(gen, func() {
		if err := r.store.Clear(ctx); err != nil {
			logger.ErrorCtx(ctx, "failed to clear credentials", logger.KeyError, err)
		}
	})
	if !current {
		return r.superseded(ctx, gen)
	}

	logger.WarnCtx(ctx, "token refresh failed, ending session", logger.KeyReason, reason)
	telemetry.RecordError(ctx, reason)
	metrics.RecordForcedLogout(r.metrics, reasonLabel(reason))
	r.notifier.Notify(ctx, reason)
	return metrics.RefreshFailed
}

// superseded drops the outcome of a refresh that raced a login or logout.
// The store already belongs to the newer state.
func (r *Refresher) superseded(ctx context.Context, gen uint64) string {
	logger.InfoCtx(ctx, "session changed during refresh, discarding result", logger.KeyGeneration, gen)
	return metrics.RefreshSuperseded
}

// succeeded reports whether the caller may retry with the stored token.
func succeeded(result string) bool {
	return result == metrics.RefreshSucceeded || result == metrics.RefreshSkipped
}

// reasonLabel keeps the forced-logout metric's cardinality bounded.
func reasonLabel(reason error) string {
	switch {
	case errors.Is(reason, ErrNoRefreshToken):
		return "no_refresh_token"
	case errors.Is(reason, ErrEmptyTokenResponse):
		return "empty_response"
	case errors.Is(reason, ErrConnectivity):
		return "connectivity"
	case errors.Is(reason, ErrRequestFailed):
		return "rejected"
	default:
		return "store"
	}
}
