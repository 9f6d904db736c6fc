package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/authsession/pkg/credentials"
)

func TestNew(t *testing.T) {
	client := New("http://192.168.1.20:8000/")
	assert.NotNil(t, client)
	assert.Equal(t, "http://192.168.1.20:8000", client.BaseURL())
	assert.Equal(t, "192.168.1.20:8000", client.host)
	assert.Equal(t, DefaultEndpoints(), client.Endpoints())
	assert.NotNil(t, client.Store())
	assert.NotNil(t, client.Notifier())
	assert.Equal(t, DefaultRefreshTimeout, client.refresher.timeout)
}

func TestWithEndpointsKeepsDefaultsForEmptyEntries(t *testing.T) {
	client := New("http://localhost", WithEndpoints(Endpoints{Login: "/auth/token"}))
	assert.Equal(t, "/auth/token", client.Endpoints().Login)
	assert.Equal(t, "/api/v1/auth/refresh", client.Endpoints().Refresh)
}

func TestExecuteWithoutTokenMakesNoNetworkCall(t *testing.T) {
	f := newFakeAPI(t)
	client, _, _ := newTestClient(t, f, false)

	err := client.Execute(t.Context(), "/api/v1/orders", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.Zero(t, f.resourceCalls.Load())
	assert.Zero(t, f.refreshCalls.Load())
}

func TestExecuteAttachesBearerAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer A1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "authctl/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "fr", r.Header.Get("Accept-Language"))
		_, err := uuid.Parse(r.Header.Get(HeaderRequestID))
		assert.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Write(t.Context(), &credentials.Credentials{AccessToken: "A1", RefreshToken: "R1", User: testUser()}))
	client := New(server.URL, WithStore(store), WithUserAgent("authctl/test"))

	err := client.Execute(t.Context(), "/api/v1/profile", &RequestOptions{
		Headers: map[string]string{"Accept-Language": "fr"},
	}, nil)
	require.NoError(t, err)
}

func TestExecuteCallerCannotOverrideBearer(t *testing.T) {
	f := newFakeAPI(t)
	client, _, _ := newTestClient(t, f, true)

	err := client.Execute(t.Context(), "/api/v1/orders", &RequestOptions{
		Headers: map[string]string{"Authorization": "Bearer forged"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{bearer("A1")}, f.authHeaders())
}

func TestExecutePublicNeverSendsToken(t *testing.T) {
	f := newFakeAPI(t)
	client, _, rec := newTestClient(t, f, true)

	err := client.Execute(t.Context(), "/api/v1/catalog", &RequestOptions{Public: true}, nil)

	// The fake rejects tokenless calls with 401; a public call does not refresh.
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	re, ok := AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
	assert.Equal(t, "token expired", re.Message)
	assert.Equal(t, []string{""}, f.authHeaders())
	assert.Zero(t, f.refreshCalls.Load())
	assert.Zero(t, rec.count())
}

func TestExecuteSendsBodyOnce(t *testing.T) {
	type order struct {
		Item string `json:"item"`
	}
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var o order
		require.NoError(t, json.NewDecoder(r.Body).Decode(&o))
		bodies = append(bodies, o.Item)
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": 7, "item": o.Item}})
	}))
	defer server.Close()

	client := New(server.URL)
	var got struct {
		ID   int    `json:"id"`
		Item string `json:"item"`
	}
	err := client.Execute(t.Context(), "/api/v1/orders", &RequestOptions{
		Method: "post",
		Body:   order{Item: "filter"},
		Public: true,
	}, &got)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, []string{"filter"}, bodies)
}

func TestExecuteUnwrapsEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"success and data", `{"success":true,"data":{"name":"x"}}`, `{"name":"x"}`},
		{"data only", `{"data":{"name":"x"}}`, `{"name":"x"}`},
		{"data with message", `{"data":[1,2],"message":"ok"}`, `[1,2]`},
		{"bare object", `{"name":"x"}`, `{"name":"x"}`},
		{"data among other fields", `{"data":1,"total":3}`, `{"data":1,"total":3}`},
		{"bare array", `[1,2,3]`, `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var raw json.RawMessage
			err := New(server.URL).Execute(t.Context(), "/x", &RequestOptions{Public: true}, &raw)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestExtractMessagePrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail wins", `{"detail":"d","error":{"message":"em"},"message":"m"}`, "d"},
		{"error.message", `{"error":{"message":"em"},"message":"m"}`, "em"},
		{"error string", `{"error":"plain","message":"m"}`, "plain"},
		{"message", `{"message":"m"}`, "m"},
		{"validation list", `{"detail":[{"msg":"email is required"},{"msg":"password too short"}]}`, "email is required; password too short"},
		{"empty detail falls through", `{"detail":"","message":"m"}`, "m"},
		{"error object without message", `{"error":{"code":"X"},"message":"m"}`, "m"},
		{"no known field", `{"status":"bad"}`, "Request failed with status 418"},
		{"not json", `<html>teapot</html>`, "Request failed with status 418"},
		{"empty body", ``, "Request failed with status 418"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMessage([]byte(tt.body), 418))
		})
	}
}

func TestExecuteRequestFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Order not found"})
	}))
	defer server.Close()

	err := New(server.URL).Execute(t.Context(), "/api/v1/orders/9", &RequestOptions{Public: true}, nil)
	require.Error(t, err)

	re, ok := AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, KindRequestFailed, re.Kind)
	assert.Equal(t, "Order not found", re.Error())
	assert.Equal(t, "/api/v1/orders/9", re.Endpoint)
	assert.True(t, re.IsNotFound())
	assert.False(t, errors.Is(err, ErrSessionExpired))
}

func TestExecuteConnectivityError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := New(url).Execute(t.Context(), "/api/v1/orders", &RequestOptions{Public: true}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Contains(t, err.Error(), "same network")
	re, _ := AsRequestError(err)
	assert.NotNil(t, re.Unwrap(), "transport error is kept as the cause")
	assert.Zero(t, re.StatusCode)
}

func TestExecuteDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": "not an object"}`))
	}))
	defer server.Close()

	var out struct{ Name string }
	err := New(server.URL).Execute(t.Context(), "/x", &RequestOptions{Public: true}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, "invalid response from server", err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unauthenticated", KindUnauthenticated.String())
	assert.Equal(t, "session_expired", KindSessionExpired.String())
	assert.Equal(t, "request_failed", KindRequestFailed.String())
	assert.Equal(t, "connectivity", KindConnectivity.String())
	assert.Equal(t, KindRequestFailed, KindOf(errors.New("plain")))
}

func TestGenericHelpers(t *testing.T) {
	f := newFakeAPI(t)
	client, _, _ := newTestClient(t, f, true)

	type pathResp struct {
		Path string `json:"path"`
	}

	got, err := Get[pathResp](t.Context(), client, "/api/v1/orders")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/orders", got.Path)

	got, err = Post[pathResp](t.Context(), client, "/api/v1/orders", map[string]string{"item": "x"})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/orders", got.Path)

	_, err = Put[pathResp](t.Context(), client, "/api/v1/orders/1", nil)
	require.NoError(t, err)
	_, err = Patch[pathResp](t.Context(), client, "/api/v1/orders/1", nil)
	require.NoError(t, err)
	require.NoError(t, Delete(t.Context(), client, "/api/v1/orders/1"))

	assert.EqualValues(t, 5, f.resourceCalls.Load())
}
