package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/config"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
	"github.com/teemow/agenda/internal/server"
)

// shutdownTimeout bounds the drain of in-flight requests on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// serveFlags are the flags of the serve command.
type serveFlags struct {
	port           int
	requestTimeout time.Duration
	corsOrigins    string
	exposeTools    bool
	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP question endpoint",
		Long: `Start the HTTP server answering calendar questions.

Endpoints:
  GET|POST /mcp        {"pergunta": "..."} -> {"resposta": "..."}
  /healthz, /readyz    liveness and readiness checks
  /mcp/tools           MCP streamable HTTP tool surface (--expose-tools)

Failures are answered with {"error": kind, "message": text} and a status
derived from the kind (400, 404, 422, 502, 504 or 500).

Google credentials:
  GOOGLE_CREDENTIALS_FILE   service account key or OAuth client secret
  GOOGLE_TOKEN_FILE         stored OAuth token (with a client secret)
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REFRESH_TOKEN
  Without any of these, Application Default Credentials are used.

Metrics are served by a dedicated server (--metrics-addr) when the
Prometheus exporter is selected (METRICS_EXPORTER=prometheus).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &rootFlags)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, &f, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cfg)
		},
	}

	registerServeFlags(cmd, &f)

	return cmd
}

func registerServeFlags(cmd *cobra.Command, f *serveFlags) {
	cmd.Flags().IntVar(&f.port, "port", config.DefaultPort, "HTTP port. Can also use PORT env var.")
	cmd.Flags().DurationVar(&f.requestTimeout, "request-timeout", config.DefaultRequestTimeout, "Deadline of one question, model and calendar calls included. Can also use REQUEST_TIMEOUT env var.")
	cmd.Flags().StringVar(&f.corsOrigins, "cors-origins", "", "Comma separated list of allowed CORS origins (default: all). Can also use CORS_ORIGINS env var.")
	cmd.Flags().BoolVar(&f.exposeTools, "expose-tools", false, "Expose the calendar tools over MCP streamable HTTP at /mcp/tools. Can also use EXPOSE_TOOLS env var.")
	cmd.Flags().BoolVar(&f.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

func applyServeFlags(cmd *cobra.Command, f *serveFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("request-timeout") {
		cfg.Server.RequestTimeout = f.requestTimeout
	}
	if changed("cors-origins") {
		cfg.Server.CORSOrigins = config.SplitList(f.corsOrigins)
	}
	if changed("expose-tools") {
		cfg.Server.ExposeTools = f.exposeTools
	}
	if changed("metrics-enabled") {
		cfg.Server.MetricsEnabled = f.metricsEnabled
	}
	if changed("metrics-addr") {
		cfg.Server.MetricsAddr = f.metricsAddr
	}
}

func runServe(cfg config.Config) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, closer, err := logging.Init(cfg.LoggingSettings())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	metricsServer, metricsErr, err := startMetricsServer(cfg, provider, logger)
	if err != nil {
		return err
	}

	a, err := newApp(shutdownCtx, cfg, appDeps{
		Logger:  logger,
		Metrics: provider.Metrics(),
		Audit:   instrumentation.NewAuditLoggerWithConfig(logging.WithOperation(logger, "audit"), instrConfig.AuditLogging),
	})
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(shutdownCtx, a.agent,
		server.WithTools(a.tools),
		server.WithInstrumentation(provider),
		server.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	httpServer, err := server.NewHTTPServer(serverContext, server.HTTPConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		ExposeTools:    cfg.Server.ExposeTools,
		Version:        version,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	logger.Info("agenda is serving",
		slog.String("addr", cfg.Addr()),
		slog.String("provider", cfg.Agent.Provider),
		slog.String("model", cfg.Agent.Model),
		slog.String("calendar_id", a.client.CalendarID()),
		slog.String("time_zone", cfg.Calendar.TimeZone),
		slog.Duration("request_timeout", cfg.Server.RequestTimeout),
		slog.Bool("date_context", cfg.Agent.DateContext),
		slog.Bool("expose_tools", cfg.Server.ExposeTools),
	)

	var runErr error
	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("HTTP server failed: %w", err)
		}
	case err := <-metricsErr:
		if err != nil {
			runErr = fmt.Errorf("metrics server failed: %w", err)
		}
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}

	return runErr
}

// startMetricsServer starts the Prometheus metrics server when enabled. The
// returned channel reports a failure after startup; it is nil when no
// server runs.
func startMetricsServer(cfg config.Config, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, <-chan error, error) {
	if !cfg.Server.MetricsEnabled || !provider.Enabled() {
		return nil, nil, nil
	}
	if provider.PrometheusHandler() == nil {
		logger.Info("metrics server disabled, exporter is not prometheus")
		return nil, nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Server.MetricsAddr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()
	logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))

	return metricsServer, metricsErr, nil
}
