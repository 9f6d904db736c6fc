package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/internal/telemetry"
	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/config"
	"github.com/marmos91/authsession/pkg/credentials"
	"github.com/marmos91/authsession/pkg/metrics"
	"github.com/marmos91/authsession/pkg/notifier"
	"github.com/marmos91/authsession/pkg/session"
)

// ServiceName identifies authctl in traces and profiles.
const ServiceName = "authctl"

// Runtime holds the components a command works with. Bootstrap sets up
// logging, tracing and metrics; OpenSession adds the credential store,
// API client and session manager on top.
type Runtime struct {
	Config   *config.Config
	Store    credentials.Store
	Notifier *notifier.Notifier
	Client   *apiclient.Client
	Manager  *session.Manager

	metricsServer *http.Server
	closers       []func(context.Context) error
}

// Open loads the configuration and returns a Runtime with a loaded session.
func Open(ctx context.Context, version string) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	rt, err := Bootstrap(ctx, cfg, version)
	if err != nil {
		return nil, err
	}
	if err := rt.OpenSession(ctx); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

// Bootstrap initializes the logger, telemetry and metrics for cfg. The
// metrics endpoint, when enabled, is served in the background until Close.
func Bootstrap(ctx context.Context, cfg *config.Config, version string) (*Runtime, error) {
	if err := logger.Init(cfg.Logging.ToLoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &Runtime{Config: cfg}

	telemetryShutdown, err := telemetry.Init(ctx, cfg.Telemetry.ToTelemetryConfig(ServiceName, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	rt.closers = append(rt.closers, telemetryShutdown)

	// Before any component asks for its metrics.
	metricsResult := config.InitializeMetrics(cfg)
	if srv := metricsResult.Server; srv != nil {
		if Flags.MetricsAddr != "" {
			srv.Addr = Flags.MetricsAddr
		}
		rt.metricsServer = srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", logger.KeyError, err)
			}
		}()
		rt.closers = append(rt.closers, srv.Shutdown)
		logger.Debug("metrics enabled", "addr", srv.Addr)
	}

	return rt, nil
}

// OpenSession opens the credential store and wires the API client and
// session manager to it, then restores any stored session.
func (r *Runtime) OpenSession(ctx context.Context) error {
	store, err := credentials.Open(r.Config.Credentials)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	r.Store = store
	r.Notifier = notifier.New()

	opts := append(r.Config.API.ClientOptions(),
		apiclient.WithStore(store),
		apiclient.WithNotifier(r.Notifier),
		apiclient.WithMetrics(metrics.NewClientMetrics()),
	)
	r.Client = apiclient.New(r.Config.API.BaseURL, opts...)

	r.Manager = session.NewManager(store, r.Client, r.Notifier)
	r.Manager.Subscribe(func(s session.Session) {
		logger.Debug("session changed", "authenticated", s.IsAuthenticated)
	})
	r.Manager.LoadStoredAuth(ctx)

	logger.Debug("session ready",
		logger.KeyServerURL, r.Client.BaseURL(),
		logger.KeyBackend, r.Config.Credentials.Backend,
		"authenticated", r.Manager.IsAuthenticated())
	return nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (r *Runtime) MetricsServer() *http.Server {
	return r.metricsServer
}

// Close releases everything Bootstrap and OpenSession created, in reverse
// order. Errors are logged.
func (r *Runtime) Close(ctx context.Context) {
	if r.Manager != nil {
		r.Manager.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			logger.Warn("failed to close credential store", logger.KeyError, err)
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			logger.Warn("shutdown error", logger.KeyError, err)
		}
	}
	r.closers = nil
}
