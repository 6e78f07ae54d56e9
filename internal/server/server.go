// Package server provides the HTTP surface: router construction and the
// middleware chain (request IDs, structured logging, call budget, auth).
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voxkit/datamap/internal/auth"
)

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

// New builds the router with the standard middleware chain. The
// authenticator is optional; when nil (or keyless) all requests are
// allowed. callTimeout is the per-call wall-clock budget enforced via
// context cancellation.
func New(port int, callTimeout time.Duration, logger *slog.Logger, authenticator *auth.Authenticator) *Server {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	if authenticator != nil && authenticator.HasKeys() {
		r.Use(AuthMiddleware(authenticator))
	}

	r.Use(TimeoutMiddleware(callTimeout))
	r.Use(middleware.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "datamapd")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

// Addr returns the listen address for the configured port.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
