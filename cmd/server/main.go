// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/machinelog/docs" // swagger spec
	"github.com/tomtom215/machinelog/internal/api"
	"github.com/tomtom215/machinelog/internal/audit"
	"github.com/tomtom215/machinelog/internal/auth"
	"github.com/tomtom215/machinelog/internal/authz"
	"github.com/tomtom215/machinelog/internal/cache"
	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/database"
	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/middleware"
	"github.com/tomtom215/machinelog/internal/storage"
	"github.com/tomtom215/machinelog/internal/supervisor"
	"github.com/tomtom215/machinelog/internal/supervisor/services"
	ws "github.com/tomtom215/machinelog/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_driver", cfg.Database.Driver).
		Str("session_store", cfg.Security.SessionStore).
		Msg("Starting Machinelog")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential wiring of every component
func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.Seed {
		seeded, err := db.Seed(context.Background(), auth.HashPassword)
		if err != nil {
			return err
		}
		logging.Info().Bool("applied", seeded).Msg("Demo seed checked")
	}

	sessions, sessionCloser, err := auth.NewSessionStore(&cfg.Security)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessionCloser.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	if cfg.Security.SessionStore == "memory" && !cfg.IsDevelopment() {
		logging.Warn().Msg("Session store is in memory; sessions will not survive a restart (SESSION_STORE=badger)")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}

	enforcer, err := authz.NewEnforcer(&cfg.Security.Casbin)
	if err != nil {
		return err
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin while authentication is enabled; set CORS_ORIGINS explicitly in production")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	var auditStore audit.Store
	if cfg.Audit.Enabled {
		auditStore = db
	}
	auditLog := audit.NewLogger(auditStore, cfg.Audit.BufferSize)
	defer func() {
		if err := auditLog.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit logger")
		}
	}()

	bus, err := events.NewBus(events.Config{CloseTimeout: cfg.Server.ShutdownTimeout})
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	hub := ws.NewHub()
	perfMon := middleware.NewPerformanceMonitor(1000, time.Second)

	handler := api.NewHandler(api.Deps{
		DB:         db,
		Config:     cfg,
		JWTManager: jwtManager,
		Sessions:   sessions,
		Auth:       auth.NewMiddleware(jwtManager, sessions, &cfg.Security, cfg.IsProduction()),
		Authz:      authz.NewMiddleware(enforcer),
		Storage:    storage.NewFactory(&cfg.Storage, &cfg.Breaker),
		Hub:        hub,
		PerfMon:    perfMon,
		Audit:      auditLog,
		Events:     bus,
	})
	// Consumers are subscribed; start before the HTTP server takes writes.
	if err := bus.Start(context.Background()); err != nil {
		return err
	}
	router := api.NewRouter(handler, api.ChiConfigFromSecurity(&cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	tree.AddDataService(auth.NewSessionJanitor(sessions, 0))
	if cfg.Audit.Enabled {
		tree.AddDataService(audit.NewRetentionService(db, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval))
	}
	tree.AddDataService(cache.NewJanitor(time.Minute, handler.Caches()...))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The channel receives exactly one value, when the root supervisor returns.
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}
