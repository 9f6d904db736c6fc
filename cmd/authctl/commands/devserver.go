package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/internal/devserver"
	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/internal/telemetry"
	"github.com/marmos91/authsession/pkg/metrics"
)

var devServerListen string

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run the development auth server",
	Long: `Run a local auth server that speaks the API's wire format.

Accounts from devserver.users in the config file are created at startup.
Access tokens are short-lived by default so clients refresh often.

Examples:
  # Listen on the configured address
  authctl dev-server

  # Listen on all interfaces for devices on the LAN
  authctl dev-server --listen 0.0.0.0:8000

  # Use a secret from the environment
  AUTHSESSION_DEVSERVER_JWT_SECRET=$(openssl rand -hex 32) authctl dev-server`,
	RunE: runDevServer,
}

func init() {
	devServerCmd.Flags().StringVar(&devServerListen, "listen", "", "Listen address (overrides devserver.listen)")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	if devServerListen != "" {
		cfg.DevServer.Listen = devServerListen
	}
	if !cmdutil.Flags.Verbose && cfg.Logging.Level == "WARN" {
		// The server's request log is its output.
		cfg.Logging.Level = "INFO"
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := cmdutil.Bootstrap(ctx, cfg, Version)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	profilingShutdown, err := telemetry.InitProfiling(cfg.Telemetry.Profiling.ToProfilingConfig("authsession-devserver", Version))
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	srv, err := devserver.New(cfg.DevServer, devserver.WithMetrics(metrics.NewServerMetrics()))
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dev server listening on http://%s\n", srv.Addr())
	if metrics.IsEnabled() {
		logger.Info("metrics enabled", "path", "/metrics")
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("Server stopped gracefully")
		return nil
	case err := <-serverDone:
		return err
	}
}
