// Package api provides the HTTP chassis for the notification receiver.
// It creates a chi router that is served both by a standard HTTP server
// (local and container deployments) and by the Lambda Function URL adapter,
// and applies the cross-cutting middleware before requests reach handlers.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"iapnotify/internal/config"
)

// Server encapsulates the router and its dependencies.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// Notifications handles POST / and POST /notifications.
	Notifications http.Handler

	// HealthProbes are checked by GET /health. Empty means always healthy.
	HealthProbes []HealthProbe

	// Closers are released on Shutdown (database pools, etc.).
	Closers []io.Closer

	router *chi.Mux
}

// NewServer validates dependencies and prepares the router. The caller mounts
// routes with MountRoutes after setting Notifications and HealthProbes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Shutdown releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for _, c := range s.Closers {
		if err := c.Close(); err != nil {
			s.Logger.Error("error closing resource", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("closing resource: %w", err)
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return firstErr
}
