package devserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/authsession/internal/cli/health"
	"github.com/marmos91/authsession/pkg/metrics"
)

// NewRouter builds the dev server's routes.
//
// Routes:
//   - GET /health
//   - GET /metrics (404 unless metrics are enabled)
//   - POST /api/v1/auth/login, /refresh, /register/individual,
//     /register/company, /forgot-password
//   - POST /api/v1/auth/logout, GET /api/v1/auth/me (bearer)
//   - GET /api/v1/orders, /orders/{id}, /profile, /notifications (bearer)
func NewRouter(users *UserStore, tokens *TokenService, m metrics.ServerMetrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(m))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, health.Response{Status: health.StatusHealthy, Users: users.Count()})
	})
	r.Handle("/metrics", metrics.Handler())

	authHandler := NewAuthHandler(users, tokens, m)
	resources := &ResourceHandler{users: users}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/register/individual", authHandler.RegisterIndividual)
			r.Post("/register/company", authHandler.RegisterCompany)
			r.Post("/forgot-password", authHandler.ForgotPassword)

			r.Group(func(r chi.Router) {
				r.Use(BearerAuth(tokens, m))
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(tokens, m))
			r.Get("/orders", resources.Orders)
			r.Get("/orders/{id}", resources.Order)
			r.Get("/profile", resources.Profile)
			r.Get("/notifications", resources.Notifications)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "No route for "+r.URL.Path)
	})

	return r
}
