package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/metrics"
)

// AuthHandler serves the /api/v1/auth endpoints.
type AuthHandler struct {
	users   *UserStore
	tokens  *TokenService
	metrics metrics.ServerMetrics
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *UserStore, tokens *TokenService, m metrics.ServerMetrics) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, metrics: m}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest is the request body for both registration endpoints.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// ForgotPasswordRequest is the request body for POST /api/v1/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// TokenResponse is the data payload of login and refresh.
type TokenResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	ExpiresAt    time.Time         `json:"expires_at"`
	User         *credentials.User `json:"user"`
}

func (h *AuthHandler) issue(w http.ResponseWriter, user *User, kind string) {
	pair, err := h.tokens.Issue(user)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}
	metrics.RecordTokenIssued(h.metrics, kind)

	WriteEnvelope(w, http.StatusOK, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
		User:         user.Profile(),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		BadRequest(w, "Email and password are required")
		return
	}

	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		metrics.RecordAuthFailure(h.metrics, "invalid_credentials")
		logger.InfoCtx(r.Context(), "login rejected", logger.KeyUsername, req.Email)
		Unauthorized(w, "Invalid email or password")
		return
	}

	h.issue(w, user, "login")
}

// Refresh handles POST /api/v1/auth/refresh. The presented refresh token is
// consumed; a new pair is returned.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		BadRequest(w, "Refresh token is required")
		return
	}

	claims, err := h.tokens.ConsumeRefreshToken(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpiredToken):
			metrics.RecordAuthFailure(h.metrics, "refresh_expired")
			Unauthorized(w, "Refresh token has expired")
		case errors.Is(err, ErrTokenReused):
			metrics.RecordAuthFailure(h.metrics, "refresh_reused")
			Unauthorized(w, "Refresh token has already been used")
		default:
			metrics.RecordAuthFailure(h.metrics, "refresh_invalid")
			Unauthorized(w, "Invalid refresh token")
		}
		return
	}

	user, err := h.users.Get(claims.Email)
	if err != nil {
		Unauthorized(w, "User not found")
		return
	}

	h.issue(w, user, "refresh")
}

// Logout handles POST /api/v1/auth/logout by revoking every refresh token
// of the caller.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	n := h.tokens.RevokeUser(claims.UserID)
	logger.DebugCtx(r.Context(), "revoked refresh tokens", logger.KeyUserID, claims.UserID, "count", n)
	w.WriteHeader(http.StatusNoContent)
}

// RegisterIndividual handles POST /api/v1/auth/register/individual.
func (h *AuthHandler) RegisterIndividual(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, credentials.CustomerIndividual)
}

// RegisterCompany handles POST /api/v1/auth/register/company.
func (h *AuthHandler) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, credentials.CustomerCompany)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, kind credentials.CustomerType) {
	var req RegisterRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := h.users.Create(SeedUser{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CustomerType: kind,
		CompanyName:  req.CompanyName,
	})
	switch {
	case errors.Is(err, ErrUserExists):
		Conflict(w, "Email already registered")
		return
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong),
		errors.Is(err, ErrEmailRequired), errors.Is(err, ErrCompanyRequired):
		UnprocessableEntity(w, capitalize(err.Error()))
		return
	case err != nil:
		InternalServerError(w, "Failed to create account")
		return
	}

	logger.InfoCtx(r.Context(), "account registered", logger.KeyUserID, user.ID, "customer_type", string(kind))
	WriteEnvelope(w, http.StatusCreated, map[string]any{
		"user":    user.Profile(),
		"message": "Account created",
	})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password. The answer does
// not reveal whether the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		BadRequest(w, "Email is required")
		return
	}

	if _, err := h.users.Get(req.Email); err == nil {
		logger.InfoCtx(r.Context(), "password reset requested", logger.KeyUsername, req.Email)
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the email is registered, a reset link has been sent",
	})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.users.Get(claims.Email)
	if err != nil {
		Unauthorized(w, "User not found")
		return
	}
	WriteData(w, user.Profile())
}

// ResourceHandler serves the demo resources used to exercise authenticated
// calls.
type ResourceHandler struct {
	users *UserStore
}

// Order is a demo order.
type Order struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is a demo notification.
type Notification struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Read    bool   `json:"read"`
}

func ordersFor(userID string) []Order {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	statuses := []string{"delivered", "shipped", "pending"}
	orders := make([]Order, len(statuses))
	for i, st := range statuses {
		orders[i] = Order{
			ID:        fmt.Sprintf("%s-%d", shortID(userID), i+1),
			Status:    st,
			Total:     float64(19*(i+1)) + 0.99,
			Currency:  "EUR",
			CreatedAt: base.AddDate(0, 0, 7*i),
		}
	}
	return orders
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Orders handles GET /api/v1/orders.
func (h *ResourceHandler) Orders(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	WriteData(w, ordersFor(claims.UserID))
}

// Order handles GET /api/v1/orders/{id}.
func (h *ResourceHandler) Order(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")
	for _, o := range ordersFor(claims.UserID) {
		if o.ID == id {
			WriteData(w, o)
			return
		}
	}
	NotFound(w, fmt.Sprintf("Order %s not found", id))
}

// Profile handles GET /api/v1/profile.
func (h *ResourceHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	user, err := h.users.Get(claims.Email)
	if err != nil {
		NotFound(w, "Profile not found")
		return
	}
	WriteData(w, user.Profile())
}

// Notifications handles GET /api/v1/notifications.
func (h *ResourceHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	WriteData(w, []Notification{
		{ID: "n-1", Message: "Your order has shipped"},
		{ID: "n-2", Message: "Welcome aboard", Read: true},
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
