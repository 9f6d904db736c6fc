package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/authsession/pkg/credentials"
)

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents the response from login/refresh endpoints.
type TokenResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	TokenType    string            `json:"token_type,omitempty"`
	ExpiresIn    int64             `json:"expires_in,omitempty"` // seconds
	ExpiresAt    time.Time         `json:"expires_at,omitempty"`
	User         *credentials.User `json:"user,omitempty"`
}

// ExpiresInDuration returns ExpiresIn as a time.Duration.
func (t *TokenResponse) ExpiresInDuration() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// Credentials converts the response into a store snapshot.
func (t *TokenResponse) Credentials() *credentials.Credentials {
	return &credentials.Credentials{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         t.User,
	}
}

// RegisterRequest is the body of both registration endpoints.
// CompanyName is required for company accounts and ignored otherwise.
type RegisterRequest struct {
	CustomerType credentials.CustomerType `json:"-"`
	Email        string                   `json:"email"`
	Password     string                   `json:"password"`
	FirstName    string                   `json:"first_name"`
	LastName     string                   `json:"last_name"`
	Phone        string                   `json:"phone,omitempty"`
	CompanyName  string                   `json:"company_name,omitempty"`
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	User    *credentials.User `json:"user,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Login authenticates with the server and returns tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	req := LoginRequest{
		Email:    email,
		Password: password,
	}

	var resp TokenResponse
	err := c.Execute(ctx, c.endpoints.Login, &RequestOptions{
		Method: http.MethodPost,
		Body:   req,
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// RefreshTokens exchanges a refresh token for a new token pair. It is a
// plain call: it neither reads nor writes the store. Use Refresher to
// refresh the stored session.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	req := struct {
		RefreshToken string `json:"refresh_token"`
	}{
		RefreshToken: refreshToken,
	}

	var resp TokenResponse
	err := c.Execute(ctx, c.endpoints.Refresh, &RequestOptions{
		Method: http.MethodPost,
		Body:   req,
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// Logout invalidates accessToken on the server. A rejected token is not
// refreshed: there is no point renewing a session that is being closed.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.Execute(ctx, c.endpoints.Logout, &RequestOptions{
		Method:  http.MethodPost,
		Headers: map[string]string{"Authorization": "Bearer " + accessToken},
		Public:  true,
	}, nil)
}

// Register creates an individual or company account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	endpoint := c.endpoints.RegisterIndividual
	if req.CustomerType == credentials.CustomerCompany {
		endpoint = c.endpoints.RegisterCompany
	}

	var resp RegisterResponse
	err := c.Execute(ctx, endpoint, &RequestOptions{
		Method: http.MethodPost,
		Body:   req,
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword asks the server to send a password reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := struct {
		Email string `json:"email"`
	}{
		Email: email,
	}
	return c.Execute(ctx, c.endpoints.ForgotPassword, &RequestOptions{
		Method: http.MethodPost,
		Body:   req,
		Public: true,
	}, nil)
}

// Me returns the profile of the logged-in user.
func (c *Client) Me(ctx context.Context) (*credentials.User, error) {
	return Get[credentials.User](ctx, c, c.endpoints.Me)
}
