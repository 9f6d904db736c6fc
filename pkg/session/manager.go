// Package session owns the authenticated identity of the device user.
//
// A Manager holds the one Session value of the process and is the only
// component that logs in, registers or logs out on purpose. Forced logouts
// raised by the API client reach it through the notifier it registers with
// in NewManager.
//
// Every mutation writes the credential store first and then updates the
// in-memory Session, under the Manager's lock. Logins and logouts also start
// a new notifier generation, which makes a refresh still running for the
// previous session discard its result instead of writing it back. The lock is never held across
// a network call: a request made while holding it could need a refresh, and
// a failing refresh calls back into the Manager.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/internal/telemetry"
	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/notifier"
)

// ErrIncompleteLogin is returned when the login response lacks a token or
// the user record.
var ErrIncompleteLogin = errors.New("login response did not include a complete session")

// AuthAPI is the subset of the API client the Manager calls.
// *apiclient.Client implements it.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*apiclient.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.RegisterResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	Me(ctx context.Context) (*credentials.User, error)
}

var _ AuthAPI = (*apiclient.Client)(nil)

// Session is a snapshot of the authenticated identity.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *credentials.User

	// IsAuthenticated is true iff all three fields above are set.
	IsAuthenticated bool
	// IsLoading is true until LoadStoredAuth has completed.
	IsLoading bool
}

func fromCredentials(c *credentials.Credentials) Session {
	if !c.Complete() {
		return Session{}
	}
	cp := c.Clone()
	return Session{
		AccessToken:     cp.AccessToken,
		RefreshToken:    cp.RefreshToken,
		User:            cp.User,
		IsAuthenticated: true,
	}
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Manager owns the Session value.
type Manager struct {
	mu      sync.RWMutex
	session Session

	store    credentials.Store
	api      AuthAPI
	notifier *notifier.Notifier

	subsMu  sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

// NewManager creates a Manager and registers its forced-logout and refresh
// handlers on n. The Session starts empty with IsLoading set.
func NewManager(store credentials.Store, api AuthAPI, n *notifier.Notifier) *Manager {
	m := &Manager{
		session:  Session{IsLoading: true},
		store:    store,
		api:      api,
		notifier: n,
		subs:     make(map[int]func(Session)),
	}
	if n != nil {
		n.SetCallback(m.handleForcedLogout)
		n.SetRefreshCallback(m.handleRefreshed)
	}
	return m
}

// Close unregisters the Manager from its notifier.
func (m *Manager) Close() {
	if m.notifier != nil {
		m.notifier.SetCallback(nil)
		m.notifier.SetRefreshCallback(nil)
	}
}

// Session returns a copy of the current Session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.clone()
}

// IsAuthenticated reports whether a complete session is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.IsAuthenticated
}

// Subscribe registers fn to receive the Session after every transition.
// fn runs synchronously on the goroutine that caused the transition and
// must not call back into the Manager's mutating methods.
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

func (m *Manager) publish(s Session) {
	m.subsMu.Lock()
	fns := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(s.clone())
	}
}

// LoadStoredAuth populates the Session from the store. A partial snapshot
// counts as logged out and its leftovers are cleared. Errors are logged,
// never returned; IsLoading is cleared in every case.
func (m *Manager) LoadStoredAuth(ctx context.Context) {
	m.mu.Lock()
	next := Session{}

	creds, err := m.store.Read(ctx)
	switch {
	case err != nil:
		logger.WarnCtx(ctx, "failed to load stored credentials", logger.KeyError, err)
	case creds.Complete():
		next = fromCredentials(creds)
		logger.DebugCtx(ctx, "restored session", logger.KeyUserID, creds.User.ID)
	case !creds.Empty():
		logger.WarnCtx(ctx, "discarding partial stored credentials")
		if err := m.store.Clear(ctx); err != nil {
			logger.WarnCtx(ctx, "failed to clear partial credentials", logger.KeyError, err)
		}
	}

	m.session = next
	snapshot := m.session.clone()
	m.mu.Unlock()

	m.publish(snapshot)
}

// Login authenticates and persists the session.
//
// It returns nil on success. A rejection comes back as a *apiclient.RequestError
// of kind KindRequestFailed carrying the server's message; an unreachable
// server as KindConnectivity, whose message asks the user to check the
// network. The Session is unchanged on failure.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanLogin)
	defer span.End()
	ctx = logger.WithContext(ctx, logger.NewLogContext("", "", "").WithUsername(identifier))

	tokens, err := m.api.Login(ctx, identifier, secret)
	if err != nil {
		telemetry.RecordError(ctx, err)
		if apiclient.KindOf(err) == apiclient.KindConnectivity {
			logger.WarnCtx(ctx, "login failed: server unreachable", logger.KeyError, err)
		} else {
			logger.InfoCtx(ctx, "login rejected", logger.KeyError, err)
		}
		return err
	}

	creds := tokens.Credentials()
	if !creds.Complete() {
		telemetry.RecordError(ctx, ErrIncompleteLogin)
		return ErrIncompleteLogin
	}

	if err := m.establish(ctx, creds); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	telemetry.SetAttributes(ctx, telemetry.UserID(creds.User.ID))
	logger.InfoCtx(ctx, "logged in", logger.KeyUserID, creds.User.ID)
	return nil
}

// establish persists creds and makes them the current Session.
func (m *Manager) establish(ctx context.Context, creds *credentials.Credentials) error {
	m.mu.Lock()
	var err error
	m.notifier.Advance(func() { err = m.store.Write(ctx, creds) })
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("save credentials: %w", err)
	}
	m.session = fromCredentials(creds)
	snapshot := m.session.clone()
	m.mu.Unlock()

	m.publish(snapshot)
	return nil
}

// Register creates an account and then logs in with the same email and
// password.
func (m *Manager) Register(ctx context.Context, req apiclient.RegisterRequest) error {
	if _, err := m.api.Register(ctx, req); err != nil {
		logger.InfoCtx(ctx, "registration rejected", logger.KeyError, err)
		return err
	}
	return m.Login(ctx, req.Email, req.Password)
}

// ForgotPassword requests a password reset email.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.api.ForgotPassword(ctx, email)
}

// RefreshProfile re-fetches the user record and stores it.
func (m *Manager) RefreshProfile(ctx context.Context) (*credentials.User, error) {
	user, err := m.api.Me(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	var creds *credentials.Credentials
	m.notifier.Hold(func() {
		creds, err = m.store.Read(ctx)
		if err != nil {
			err = fmt.Errorf("read credentials: %w", err)
			return
		}
		if !creds.Complete() {
			// Logged out while the request was in flight.
			err = apiclient.ErrUnauthenticated
			return
		}
		creds.User = user
		if werr := m.store.Write(ctx, creds); werr != nil {
			err = fmt.Errorf("save credentials: %w", werr)
		}
	})
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.session = fromCredentials(creds)
	snapshot := m.session.clone()
	m.mu.Unlock()

	m.publish(snapshot)
	return user, nil
}

// Logout ends the session. The server is told on a best-effort basis; the
// local store and Session are cleared whatever it answers. Calling Logout
// while logged out is a no-op apart from re-clearing the store.
func (m *Manager) Logout(ctx context.Context) {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanLogout)
	defer span.End()

	token := m.Session().AccessToken
	if token == "" {
		if creds, err := m.store.Read(ctx); err == nil {
			token = creds.AccessToken
		}
	}

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			logger.DebugCtx(ctx, "remote logout failed, clearing local session anyway", logger.KeyError, err)
		}
	}

	m.reset(ctx, "logged out")
}

func (m *Manager) reset(ctx context.Context, msg string) {
	m.mu.Lock()
	m.notifier.Advance(func() {
		if err := m.store.Clear(ctx); err != nil {
			logger.WarnCtx(ctx, "failed to clear credentials", logger.KeyError, err)
		}
	})
	was := m.session.IsAuthenticated
	m.session = Session{}
	snapshot := m.session.clone()
	m.mu.Unlock()

	if was {
		logger.InfoCtx(ctx, msg)
	}
	m.publish(snapshot)
}

// handleForcedLogout runs when the client gives up on the session. The
// client clears the store before notifying, so a complete store here means
// a new login landed in between; that session is kept.
func (m *Manager) handleForcedLogout(ctx context.Context, reason error) {
	m.mu.Lock()
	creds, err := m.store.Read(ctx)
	if err == nil && creds.Complete() {
		m.session = fromCredentials(creds)
		snapshot := m.session.clone()
		m.mu.Unlock()
		logger.DebugCtx(ctx, "forced logout superseded by a newer session")
		m.publish(snapshot)
		return
	}

	was := m.session.IsAuthenticated
	m.session = Session{}
	snapshot := m.session.clone()
	m.mu.Unlock()

	if was {
		logger.WarnCtx(ctx, "session ended by the server", logger.KeyReason, reason)
	}
	m.publish(snapshot)
}

// handleRefreshed keeps the Session's tokens in step with the store.
func (m *Manager) handleRefreshed(_ context.Context, accessToken, refreshToken string) {
	m.mu.Lock()
	if !m.session.IsAuthenticated {
		m.mu.Unlock()
		return
	}
	m.session.AccessToken = accessToken
	m.session.RefreshToken = refreshToken
	snapshot := m.session.clone()
	m.mu.Unlock()

	m.publish(snapshot)
}
