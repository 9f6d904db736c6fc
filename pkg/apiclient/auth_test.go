package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/authsession/pkg/credentials"
)

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req LoginRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", req.Email)
		assert.Equal(t, "wonderland", req.Password)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": TokenResponse{
				AccessToken:  "access-token-123",
				RefreshToken: "refresh-token-456",
				TokenType:    "Bearer",
				ExpiresIn:    3600,
				ExpiresAt:    time.Now().Add(time.Hour),
				User:         testUser(),
			},
		})
	}))
	defer server.Close()

	client := New(server.URL)
	resp, err := client.Login(t.Context(), "alice@example.com", "wonderland")

	require.NoError(t, err)
	assert.Equal(t, "access-token-123", resp.AccessToken)
	assert.Equal(t, "refresh-token-456", resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, time.Hour, resp.ExpiresInDuration())
	assert.True(t, resp.Credentials().Complete())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFakeAPI(t)
	client, store, rec := newTestClient(t, f, false)

	resp, err := client.Login(t.Context(), "alice@example.com", "wrong")

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.Zero(t, f.refreshCalls.Load(), "a rejected login never refreshes")
	assert.Zero(t, rec.count())

	creds, _ := store.Read(t.Context())
	assert.True(t, creds.Empty(), "the client never writes the store on login")
}

func TestRefreshTokens(t *testing.T) {
	f := newFakeAPI(t)
	client := New(f.server.URL)

	resp, err := client.RefreshTokens(t.Context(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "A2", resp.AccessToken)
	assert.Equal(t, "R2", resp.RefreshToken)

	_, err = client.RefreshTokens(t.Context(), "R1")
	require.Error(t, err, "refresh tokens are single use")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestLogoutSendsExplicitBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer A1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, New(server.URL).Logout(t.Context(), "A1"))
}

func TestLogoutRejectedDoesNotRefresh(t *testing.T) {
	refreshCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			refreshCalled = true
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "expired"})
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Write(t.Context(), &credentials.Credentials{AccessToken: "A1", RefreshToken: "R1", User: testUser()}))

	err := New(server.URL, WithStore(store)).Logout(t.Context(), "A1")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.False(t, refreshCalled)
}

func TestRegisterRoutesByCustomerType(t *testing.T) {
	tests := []struct {
		customerType credentials.CustomerType
		wantPath     string
	}{
		{credentials.CustomerIndividual, "/api/v1/auth/register/individual"},
		{"", "/api/v1/auth/register/individual"},
		{credentials.CustomerCompany, "/api/v1/auth/register/company"},
	}

	for _, tt := range tests {
		t.Run(string(tt.customerType), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "bob@example.com", body["email"])
				assert.NotContains(t, body, "CustomerType")

				writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"message": "created"}})
			}))
			defer server.Close()

			resp, err := New(server.URL).Register(t.Context(), RegisterRequest{
				CustomerType: tt.customerType,
				Email:        "bob@example.com",
				Password:     "s3cret-pass",
				FirstName:    "Bob",
				LastName:     "Builder",
				CompanyName:  "Builder Ltd",
			})
			require.NoError(t, err)
			assert.Equal(t, "created", resp.Message)
		})
	}
}

func TestForgotPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/forgot-password", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	require.NoError(t, New(server.URL).ForgotPassword(t.Context(), "alice@example.com"))
}

func TestMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer A1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"data": testUser()})
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Write(t.Context(), &credentials.Credentials{AccessToken: "A1", RefreshToken: "R1", User: testUser()}))

	user, err := New(server.URL, WithStore(store)).Me(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)
}
