// Package server provides the health/readiness HTTP listener that runs
// alongside the resolution driver so orchestrators (Kubernetes, systemd)
// can probe process liveness independent of the driver's polling cycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oraclesettle/parimutuel/internal/server/handler"
	"github.com/oraclesettle/parimutuel/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Server is the headless health/readiness HTTP server run alongside the
// resolution driver.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server exposing /healthz and /readyz. deps names
// each dependency the readiness check should ping (e.g. "postgres",
// "redis"); pass nil for a driver run with no durable backing store.
func NewServer(cfg Config, deps map[string]handler.Pinger, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	health := handler.NewHealthHandler(logger, deps)
	mux.HandleFunc("GET /healthz", health.HealthCheck)
	mux.HandleFunc("GET /readyz", health.Readiness)

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
