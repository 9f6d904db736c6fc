// Package notifier carries forced-logout notifications from the API client to
// the session layer.
//
// A Notifier holds at most one callback. The client calls Notify when a
// refresh fails and the stored credentials have been cleared; the session
// manager registers a callback that resets its in-memory state. Neither side
// imports the other.
//
// A second slot carries successful refreshes, so the session layer can keep
// its copy of the tokens in step with the store.
//
// The Notifier also numbers sessions. The session layer starts a new
// generation on every deliberate login or logout (Advance); the client only
// persists the outcome of a refresh if the generation it started under is
// still current (IfCurrent). Both run their store access under the same
// lock, so a refresh that loses the race never writes over a logout.
package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/marmos91/authsession/internal/logger"
)

// ErrRefreshFailed is the default reason for a forced logout.
var ErrRefreshFailed = errors.New("session refresh failed")

// Callback is invoked once per forced logout. reason is never nil.
type Callback func(ctx context.Context, reason error)

// RefreshCallback is invoked after rotated tokens have been persisted.
type RefreshCallback func(ctx context.Context, accessToken, refreshToken string)

// Notifier is a single-slot observer. The zero value is ready to use.
type Notifier struct {
	mu        sync.RWMutex
	fn        Callback
	refreshed RefreshCallback

	genMu sync.Mutex
	gen   uint64
}

// New creates a Notifier with no callback registered.
func New() *Notifier {
	return &Notifier{}
}

// SetCallback registers fn, replacing any previous callback. A nil fn
// unregisters.
func (n *Notifier) SetCallback(fn Callback) {
	n.mu.Lock()
	n.fn = fn
	n.mu.Unlock()
}

// HasCallback reports whether a callback is registered.
func (n *Notifier) HasCallback() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.fn != nil
}

// Notify invokes the registered callback synchronously. With no callback it
// does nothing. A panicking callback is recovered and logged so the caller's
// request still completes. Safe to call on a nil Notifier.
func (n *Notifier) Notify(ctx context.Context, reason error) {
	if n == nil {
		return
	}

	n.mu.RLock()
	fn := n.fn
	n.mu.RUnlock()

	if fn == nil {
		logger.DebugCtx(ctx, "forced logout with no listener")
		return
	}
	if reason == nil {
		reason = ErrRefreshFailed
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "forced logout callback panicked", "panic", r)
		}
	}()
	fn(ctx, reason)
}

// SetRefreshCallback registers fn for successful refreshes, replacing any
// previous one. A nil fn unregisters.
func (n *Notifier) SetRefreshCallback(fn RefreshCallback) {
	n.mu.Lock()
	n.refreshed = fn
	n.mu.Unlock()
}

// NotifyRefreshed invokes the refresh callback, if any. Safe to call on a
// nil Notifier.
func (n *Notifier) NotifyRefreshed(ctx context.Context, accessToken, refreshToken string) {
	if n == nil {
		return
	}

	n.mu.RLock()
	fn := n.refreshed
	n.mu.RUnlock()
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "refresh callback panicked", "panic", r)
		}
	}()
	fn(ctx, accessToken, refreshToken)
}

// Generation returns the current session generation. Safe to call on a nil
// Notifier, which always reports 0.
func (n *Notifier) Generation() uint64 {
	if n == nil {
		return 0
	}
	n.genMu.Lock()
	defer n.genMu.Unlock()
	return n.gen
}

// Advance runs fn under the generation lock and then starts a new
// generation. fn must not call back into the Notifier. On a nil Notifier fn
// simply runs.
func (n *Notifier) Advance(fn func()) {
	if n == nil {
		fn()
		return
	}
	n.genMu.Lock()
	defer n.genMu.Unlock()
	fn()
	n.gen++
}

// IfCurrent runs fn under the generation lock if gen is still the current
// generation and reports whether it ran. fn must not call back into the
// Notifier. On a nil Notifier fn always runs.
func (n *Notifier) IfCurrent(gen uint64, fn func()) bool {
	if n == nil {
		fn()
		return true
	}
	n.genMu.Lock()
	defer n.genMu.Unlock()
	if n.gen != gen {
		return false
	}
	fn()
	return true
}

// Hold runs fn under the generation lock without starting a new
// generation. It orders a read-modify-write of the store against refreshes.
func (n *Notifier) Hold(fn func()) {
	if n == nil {
		fn()
		return
	}
	n.genMu.Lock()
	defer n.genMu.Unlock()
	fn()
}
