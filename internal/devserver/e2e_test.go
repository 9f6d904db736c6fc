package devserver

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/notifier"
	"github.com/marmos91/authsession/pkg/session"
)

type e2eEnv struct {
	srv          *Server
	client       *apiclient.Client
	manager      *session.Manager
	store        credentials.Store
	refreshCalls *atomic.Int32
}

func newE2E(t *testing.T) *e2eEnv {
	t.Helper()
	srv, err := New(testConfig(), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	refreshCalls := &atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			refreshCalls.Add(1)
		}
		srv.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	store, err := credentials.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, err)
	n := notifier.New()
	client := apiclient.New(ts.URL, apiclient.WithStore(store), apiclient.WithNotifier(n))
	manager := session.NewManager(store, client, n)
	t.Cleanup(manager.Close)
	manager.LoadStoredAuth(t.Context())

	return &e2eEnv{srv: srv, client: client, manager: manager, store: store, refreshCalls: refreshCalls}
}

func (e *e2eEnv) expireAccessTokens() {
	e.srv.tokens.SetClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
}

func TestEndToEndLoginAndFetch(t *testing.T) {
	env := newE2E(t)

	require.NoError(t, env.manager.Login(t.Context(), "alice@example.com", "wonderland"))
	assert.True(t, env.manager.IsAuthenticated())
	assert.Equal(t, "Alice", env.manager.Session().User.FirstName)

	var orders []Order
	require.NoError(t, env.client.Execute(t.Context(), "/api/v1/orders", nil, &orders))
	assert.Len(t, orders, 3)

	user, err := env.manager.RefreshProfile(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Liddell", user.LastName)
}

func TestEndToEndConcurrentExpiryRefreshesOnce(t *testing.T) {
	env := newE2E(t)
	require.NoError(t, env.manager.Login(t.Context(), "alice@example.com", "wonderland"))
	before := env.manager.Session()

	env.expireAccessTokens()

	paths := []string{"/api/v1/orders", "/api/v1/profile", "/api/v1/notifications"}
	errs := make([]error, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			errs[i] = env.client.Execute(t.Context(), p, nil, nil)
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, paths[i])
	}
	assert.EqualValues(t, 1, env.refreshCalls.Load())

	after := env.manager.Session()
	assert.True(t, after.IsAuthenticated)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken, "refresh token rotated")

	creds, err := env.store.Read(t.Context())
	require.NoError(t, err)
	assert.Equal(t, after.AccessToken, creds.AccessToken)
	assert.Equal(t, after.RefreshToken, creds.RefreshToken)
}

func TestEndToEndRevokedRefreshForcesLogout(t *testing.T) {
	env := newE2E(t)
	require.NoError(t, env.manager.Login(t.Context(), "alice@example.com", "wonderland"))

	user, err := env.srv.Users().Get("alice@example.com")
	require.NoError(t, err)
	env.srv.tokens.RevokeUser(user.ID)
	env.expireAccessTokens()

	err = env.client.Execute(t.Context(), "/api/v1/orders", nil, nil)
	assert.ErrorIs(t, err, apiclient.ErrSessionExpired)
	assert.False(t, env.manager.IsAuthenticated())

	creds, err := env.store.Read(t.Context())
	require.NoError(t, err)
	assert.True(t, creds.Empty())

	err = env.client.Execute(t.Context(), "/api/v1/orders", nil, nil)
	assert.ErrorIs(t, err, apiclient.ErrUnauthenticated)
}

func TestEndToEndLogout(t *testing.T) {
	env := newE2E(t)
	require.NoError(t, env.manager.Login(t.Context(), "alice@example.com", "wonderland"))
	refresh := env.manager.Session().RefreshToken

	env.manager.Logout(t.Context())
	assert.False(t, env.manager.IsAuthenticated())

	_, err := env.client.RefreshTokens(t.Context(), refresh)
	assert.ErrorIs(t, err, apiclient.ErrRequestFailed, "server revoked the refresh token")
}

func TestEndToEndRegisterThenLogin(t *testing.T) {
	env := newE2E(t)

	err := env.manager.Register(t.Context(), apiclient.RegisterRequest{
		CustomerType: credentials.CustomerCompany,
		Email:        "ceo@example.com",
		Password:     "company-pass",
		FirstName:    "Wile",
		CompanyName:  "Acme",
	})
	require.NoError(t, err)

	s := env.manager.Session()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, credentials.CustomerCompany, s.User.CustomerType)
}

func TestEndToEndLoginRejected(t *testing.T) {
	env := newE2E(t)

	err := env.manager.Login(t.Context(), "alice@example.com", "not-the-password")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.Equal(t, apiclient.KindRequestFailed, apiclient.KindOf(err))
}
