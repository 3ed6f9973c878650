// Command server runs the batching classification HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"

	"github.com/doublewordai/arbiter/internal/audit"
	"github.com/doublewordai/arbiter/internal/backend"
	"github.com/doublewordai/arbiter/internal/batch"
	"github.com/doublewordai/arbiter/internal/gateway"
	"github.com/doublewordai/arbiter/internal/observability"
)

// Config holds all server configuration.
type Config struct {
	// LogLevel is the log level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is the log format (json, text)
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP gateway configuration
	Gateway gateway.Config `envPrefix:""`

	// Batch scheduler configuration
	Batch batch.Config `envPrefix:""`

	// Backend configuration
	Backend backend.Config `envPrefix:""`

	// Audit publishing configuration
	Audit audit.Config `envPrefix:""`
}

func main() {
	// Load configuration from environment
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting arbiter server",
		"log_level", cfg.LogLevel,
		"http_addr", cfg.Gateway.Addr,
		"backend", cfg.Backend.Kind,
		"batch_size", cfg.Batch.BatchSize,
		"tick_duration", cfg.Batch.TickDuration(),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Setup observability
	obs, err := observability.New("arbiter")
	if err != nil {
		logger.Error("failed to setup observability", "error", err)
		os.Exit(1)
	}
	metrics, err := observability.NewMetrics(obs.Meter())
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	// Construct the inference backend
	classifier, err := backend.New(cfg.Backend, logger)
	if err != nil {
		logger.Error("failed to create backend", "error", err)
		os.Exit(1)
	}

	// Start the batch scheduler driver
	scheduler := batch.NewScheduler(cfg.Batch, classifier, metrics, logger)
	driverDone := make(chan error, 1)
	go func() {
		driverDone <- scheduler.Run(ctx)
	}()

	// Optional NATS usage publisher
	var publisher *audit.Publisher
	if cfg.Audit.Enabled() {
		publisher, err = audit.Connect(cfg.Audit, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
	}

	// Create and start HTTP server
	service := gateway.NewClassifyService(scheduler, publisher, logger)
	server := gateway.NewServer(cfg.Gateway, service, obs, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	// Graceful shutdown: stop accepting HTTP traffic first, then close the
	// scheduler so queued work drains, then release the rest.
	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	scheduler.Close()
	if err := <-driverDone; err != nil {
		logger.Error("scheduler drain error", "error", err)
	}

	if publisher != nil {
		if err := publisher.Drain(); err != nil {
			logger.Error("NATS drain error", "error", err)
		}
	}

	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("observability shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// setupLogger creates a logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
