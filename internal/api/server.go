// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.

The websocket endpoint is mounted OUTSIDE the global timeout middleware:
a chat session lives for hours, not for one request deadline.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pulsechat/pulse/internal/chat/group"
	"github.com/pulsechat/pulse/internal/chat/message"
	"github.com/pulsechat/pulse/internal/chat/realtime"
	"github.com/pulsechat/pulse/internal/platform/config"
	"github.com/pulsechat/pulse/internal/platform/constants"
	"github.com/pulsechat/pulse/internal/platform/middleware"
	"github.com/pulsechat/pulse/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Metrics serves the Prometheus scrape endpoint.
	Metrics http.Handler

	// SocketStatus reports connected user and socket counts.
	SocketStatus http.HandlerFunc

	// Auth handles authentication routes (register, login, refresh, reset).
	Auth *auth.Handler

	// Message handles direct-message REST routes (conversations, unread, send).
	Message *message.Handler

	// Group manages chat groups, rosters, and group history.
	Group *group.Handler

	// Gateway upgrades authenticated requests to websocket sessions.
	Gateway *realtime.Gateway
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Method(http.MethodGet, "/metrics", h.Metrics)

	// # Realtime Endpoint
	// The gateway authenticates the handshake itself (token in query string)
	// and must not inherit the request timeout.
	r.Get("/ws", h.Gateway.ServeHTTP)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix, each
	// bounded by the global request deadline.
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/chat", h.Message.Routes())
		api.Mount("/groups", h.Group.Routes())
		api.With(middleware.RequireAuth).Get("/ws/status", h.SocketStatus)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
