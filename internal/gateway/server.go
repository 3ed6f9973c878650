package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/doublewordai/arbiter/internal/observability"
)

// Server wraps the HTTP server with the configured middleware chain.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer assembles the mux, middleware, and http.Server from config.
func NewServer(cfg Config, service *ClassifyService, obs *observability.Module, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	handler := NewHandler(service, metrics, cfg.MaxBodyBytes, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, obs.MetricsHandler())

	var h http.Handler = mux
	h = observability.HTTPMetrics(metrics)(h)
	h = RateLimit(cfg.RateLimit)(h)
	h = RequestLogger(logger)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      h,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger.With("component", "http-server"),
	}
}

// Start listens and serves until Shutdown is called. It returns nil on
// graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
