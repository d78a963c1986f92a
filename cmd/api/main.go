// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

// Command api is the entry point for the Pulse chat backend.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) — the durable message log.
//  4. Connect to Redis — presence, offline queues, reset tokens.
//  5. Run database migrations (idempotent).
//  6. Wire domain services, the frame router, and the websocket gateway.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pulsechat/pulse/internal/api"
	"github.com/pulsechat/pulse/internal/chat/group"
	"github.com/pulsechat/pulse/internal/chat/message"
	"github.com/pulsechat/pulse/internal/chat/presence"
	"github.com/pulsechat/pulse/internal/chat/realtime"
	"github.com/pulsechat/pulse/internal/platform/config"
	"github.com/pulsechat/pulse/internal/platform/constants"
	"github.com/pulsechat/pulse/internal/platform/mailer"
	"github.com/pulsechat/pulse/internal/platform/metrics"
	"github.com/pulsechat/pulse/internal/platform/migration"
	pgstore "github.com/pulsechat/pulse/internal/platform/postgres"
	redisstore "github.com/pulsechat/pulse/internal/platform/redis"
	"github.com/pulsechat/pulse/internal/platform/sec"
	"github.com/pulsechat/pulse/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "pulse"))
	slog.SetDefault(log)

	log.Info("[Pulse] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "pulse"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Platform Services ──────────────────────────────────────────────
	jwtSvc := sec.NewTokenService([]byte(cfg.JWTSecret), constants.AuthIssuer)
	collectors := metrics.New()

	var mail mailer.Mailer = mailer.NewNopMailer(log)
	if cfg.MailEnabled() {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, log)
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	resetTokenRepository := auth.NewResetTokenRepository(rdb)
	authService := auth.NewService(userRepository, sessionRepository, resetTokenRepository, jwtSvc, mail, auth.TokenConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		ResetTokenTTL:   cfg.ResetTokenTTL,
		ClientBaseURL:   cfg.ClientBaseURL,
	})
	authHandler := auth.NewHandler(authService)

	messageService := message.NewService(message.NewRepository(pool))
	groupService := group.NewService(group.NewRepository(pool))
	presenceStore := presence.NewStore(rdb, cfg.HeartbeatTTL, constants.DefaultOfflineQueueTTL)

	// ── 9. Realtime Wiring ────────────────────────────────────────────────
	registry := realtime.NewRegistry(cfg.MaxConnectionsPerUser, presenceStore, collectors, log)
	router := realtime.NewRouter(registry, presenceStore, messageService, groupService, collectors, log)
	gateway := realtime.NewGateway(jwtSvc, registry, router, realtime.GatewayConfig{
		SendBufferSize: cfg.SendBufferSize,
		IdleTimeout:    cfg.SocketIdleTimeout,
		Development:    cfg.IsDevelopment(),
		ExtraOrigins:   splitOrigins(cfg.ExtraOrigins),
	}, log)

	messageHandler := message.NewHandler(messageService, router)
	groupHandler := group.NewHandler(groupService)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	handlers := api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Metrics:      collectors.Handler(),
		SocketStatus: api.NewSocketStatusHandler(registry),
		Auth:         authHandler,
		Message:      messageHandler,
		Group:        groupHandler,
		Gateway:      gateway,
	}

	server := api.NewServer(serverCtx, cfg, log, jwtSvc, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// splitOrigins parses the comma-separated EXTRA_ORIGINS value.
func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
