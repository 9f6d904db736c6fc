package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/notifier"
)

// fakeAPI is a scripted auth server. Resource paths accept only the current
// access token; the refresh endpoint rotates to nextAccess/nextRefresh.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	validAccess   string
	validRefresh  string
	nextAccess    string
	nextRefresh   string
	refreshStatus int           // non-zero: refresh answers with this status
	refreshDelay  time.Duration // refresh sleeps this long before answering
	holdRefresh   int32         // refresh waits until this many 401s were sent
	alwaysReject  bool          // resources answer 401 regardless of token
	seenRefresh   []string
	seenAuth      []string

	refreshCalls  atomic.Int32
	resourceCalls atomic.Int32
	unauthorized  atomic.Int32
	logoutCalls   atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:            t,
		validAccess:  "A1",
		validRefresh: "R1",
		nextAccess:   "A2",
		nextRefresh:  "R2",
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// expire makes the current access token invalid.
func (f *fakeAPI) expire() {
	f.mu.Lock()
	f.validAccess = ""
	f.mu.Unlock()
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeAPI) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenAuth...)
}

func (f *fakeAPI) refreshTokensSeen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenRefresh...)
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/refresh":
		f.handleRefresh(w, r)
	case "/api/v1/auth/login":
		f.handleLogin(w, r)
	case "/api/v1/auth/logout":
		f.logoutCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	default:
		f.handleResource(w, r)
	}
}

func (f *fakeAPI) handleResource(w http.ResponseWriter, r *http.Request) {
	f.resourceCalls.Add(1)
	auth := r.Header.Get("Authorization")

	f.mu.Lock()
	f.seenAuth = append(f.seenAuth, auth)
	ok := !f.alwaysReject && f.validAccess != "" && auth == "Bearer "+f.validAccess
	f.mu.Unlock()

	if !ok {
		f.unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"path": r.URL.Path},
	})
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	hold, delay := f.holdRefresh, f.refreshDelay
	f.seenRefresh = append(f.seenRefresh, req.RefreshToken)
	f.mu.Unlock()

	if hold > 0 {
		deadline := time.Now().Add(5 * time.Second)
		for f.unauthorized.Load() < hold && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		// Give the last rejected caller time to join the pending refresh.
		time.Sleep(50 * time.Millisecond)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refreshStatus != 0 {
		writeJSON(w, f.refreshStatus, map[string]any{"error": map[string]any{"message": "refresh token revoked"}})
		return
	}
	if req.RefreshToken != f.validRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "invalid refresh token"})
		return
	}

	f.validAccess = f.nextAccess
	if f.nextRefresh != "" {
		f.validRefresh = f.nextRefresh
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"access_token":  f.nextAccess,
			"refresh_token": f.nextRefresh,
			"token_type":    "Bearer",
			"expires_in":    900,
		},
	})
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Email != "alice@example.com" || req.Password != "wonderland" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid email or password"})
		return
	}
	f.mu.Lock()
	access, refresh := f.validAccess, f.validRefresh
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    900,
		"user":          testUser(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testUser() *credentials.User {
	return &credentials.User{
		ID:           "u-1",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Liddell",
		Role:         "customer",
		CustomerType: credentials.CustomerIndividual,
	}
}

// notifyRecorder counts forced-logout notifications.
type notifyRecorder struct {
	mu      sync.Mutex
	reasons []error
}

func (n *notifyRecorder) attach(nt *notifier.Notifier) {
	nt.SetCallback(func(_ context.Context, reason error) {
		n.mu.Lock()
		n.reasons = append(n.reasons, reason)
		n.mu.Unlock()
	})
}

func (n *notifyRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reasons)
}

// newTestClient returns a client against f with a memory store seeded with
// A1/R1 (unless seed is false) and a recorder on its notifier.
func newTestClient(t *testing.T, f *fakeAPI, seed bool, opts ...Option) (*Client, credentials.Store, *notifyRecorder) {
	t.Helper()
	store := credentials.NewMemoryStore()
	if seed {
		require.NoError(t, store.Write(t.Context(), &credentials.Credentials{
			AccessToken:  "A1",
			RefreshToken: "R1",
			User:         testUser(),
		}))
	}

	n := notifier.New()
	rec := &notifyRecorder{}
	rec.attach(n)

	all := append([]Option{WithStore(store), WithNotifier(n)}, opts...)
	return New(f.server.URL, all...), store, rec
}

func bearer(tok string) string {
	return "Bearer " + strings.TrimSpace(tok)
}
