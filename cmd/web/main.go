package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/sources"
)

const warmupTimeout = 30 * time.Second

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger, metrics http.Handler) http.Handler {
	pages := handlers.NewPageHandlers(analytics, logger, cfg.Data.Profile)
	templateHandlers := &server.TemplateHandlers{
		Dashboard: pages.HandleDashboard,
	}

	srv := server.NewServer(analytics, logger, templateHandlers, metrics)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"profile", cfg.Data.Profile,
		"data_dir", cfg.Data.Dir,
	)

	telemetry, err := observability.Setup(context.Background(), cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	src, err := sources.FromConfig(cfg.Data)
	if err != nil {
		logger.Error("failed to configure data source", "error", err)
		os.Exit(1)
	}

	analytics := services.NewAnalytics(src, logger, services.WithRollingWindow(cfg.Data.RollingWindow))

	// Missing input files are reported on the page, not at startup.
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	start := time.Now()
	if _, err := analytics.Run(ctx); err != nil {
		if errors.Is(err, sources.ErrSourceNotFound) {
			logger.Warn("sales data not available yet", "error", err)
		} else {
			logger.Error("initial report failed", "error", err)
		}
	} else {
		logger.Info("initial report built", "duration", time.Since(start))
	}
	cancel()

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger, telemetry.MetricsHandler()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("telemetry", func(ctx context.Context) error {
		logger.Info("flushing telemetry")
		return telemetry.Shutdown(ctx)
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
