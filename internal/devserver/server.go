// Package devserver is a small auth server for local development. It speaks
// the same wire format the client expects: enveloped token responses, RFC
// 7807 problem errors, single-use rotating refresh tokens, and a few
// bearer-protected demo resources.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/pkg/metrics"
)

// Server is the development auth server.
type Server struct {
	config Config
	users  *UserStore
	tokens *TokenService
	server *http.Server

	mu       sync.Mutex
	listener net.Listener

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	bcryptCost int
	metrics    metrics.ServerMetrics
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(o *serverOptions) { o.bcryptCost = cost }
}

// WithMetrics records server metrics on m.
func WithMetrics(m metrics.ServerMetrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// New creates a Server and its seed accounts. The server does not listen
// until Start is called.
func New(config Config, opts ...Option) (*Server, error) {
	config.ApplyDefaults()

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	secret := config.GetJWTSecret()
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters; set via %s env var or config", EnvJWTSecret)
	}
	jwtConfig := config.JWT
	jwtConfig.Secret = secret

	tokens, err := NewTokenService(jwtConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	users := NewUserStore(o.bcryptCost)
	for _, seed := range config.Users {
		if _, err := users.Create(seed); err != nil {
			return nil, fmt.Errorf("seed user %q: %w", seed.Email, err)
		}
	}

	return &Server{
		config: config,
		users:  users,
		tokens: tokens,
		server: &http.Server{
			Handler:      NewRouter(users, tokens, o.metrics),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Users returns the account table.
func (s *Server) Users() *UserStore {
	return s.users
}

// Addr returns the bound address once Start is listening, or the
// configured address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Listen
}

// Listen binds the configured address. Start calls it if needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	return nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("dev server listening",
			"addr", ln.Addr().String(),
			"users", s.users.Count(),
			"access_ttl", s.tokens.AccessTokenDuration().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("dev server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("dev server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("dev server shutdown error: %w", err)
			logger.Error("dev server shutdown error", logger.KeyError, err)
			return
		}
		logger.Info("dev server stopped")
	})
	return shutdownErr
}
