// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/machinelog/internal/auth"
	"github.com/tomtom215/machinelog/internal/authz"
	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/middleware"
	"github.com/tomtom215/machinelog/internal/models"
)

// Router wires handlers, authentication and authorization onto a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	auth          *auth.Middleware
	authz         *authz.Middleware
	perfMon       *middleware.PerformanceMonitor
}

// NewRouter creates a router. A nil chi config uses the defaults.
func NewRouter(handler *Handler, chiCfg *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(chiCfg),
		auth:          handler.authMW,
		authz:         handler.authz,
		perfMon:       handler.perfMon,
	}
}

// ChiConfigFromSecurity derives CORS and rate limit settings from the
// security config.
func ChiConfigFromSecurity(sec *config.SecurityConfig) *ChiMiddlewareConfig {
	cfg := DefaultChiMiddlewareConfig()
	if sec == nil {
		return cfg
	}
	if len(sec.CORSOrigins) > 0 {
		cfg.CORSAllowedOrigins = sec.CORSOrigins
		cfg.CORSAllowCredentials = true
	}
	if sec.RateLimitReqs > 0 {
		cfg.RateLimitRequests = sec.RateLimitReqs
	}
	if sec.RateLimitWindow > 0 {
		cfg.RateLimitWindow = sec.RateLimitWindow
	}
	cfg.RateLimitDisabled = sec.RateLimitDisabled
	if sec.LoginRateLimit > 0 {
		cfg.LoginRateLimit = sec.LoginRateLimit
	}
	return cfg
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	h := router.handler
	csrf := router.auth.CSRF()
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(router.perfMon.Middleware))
	r.Use(chiMiddleware(middleware.Compression))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)
		// Anonymous registration creates USER accounts; other roles need an
		// admin caller.
		r.With(router.chiMiddleware.RateLimit(), csrf.Protect, router.auth.Authenticate).Post("/register", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(csrf.Protect)
			r.Use(router.auth.RequireAuth)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})

	// The converter is public and stateless.
	r.Route("/api/v1/alarms", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAlarm())
		r.Use(APISecurityHeaders())
		r.Post("/to-address", h.AlarmToAddress)
		r.Post("/to-alarm", h.AddressToAlarm)
	})

	r.Route("/api/v1/oauth2", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Get("/authorize", h.OAuthAuthorize)
		r.Get("/callback", h.OAuthCallback)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(csrf.Protect)
		r.Use(router.auth.RequireAuth)

		r.Route("/records", func(r chi.Router) {
			r.With(router.authz.Authorize("records", "read")).Get("/", h.ListRecords)
			r.With(router.authz.Authorize("records", "write")).Post("/", h.CreateRecord)
			r.With(router.authz.Authorize("records", "read")).Get("/{id}", h.GetRecord)
			r.With(router.authz.Authorize("records", "write")).Put("/{id}", h.UpdateRecord)
			r.With(router.authz.Authorize("records", "delete")).Delete("/{id}", h.DeleteRecord)
		})
		r.With(router.authz.Authorize("tags", "read")).Get("/tags", h.ListTags)

		r.Route("/machines", func(r chi.Router) {
			r.With(router.authz.Authorize("machines", "read")).Get("/", h.ListMachines)
			r.With(router.authz.Authorize("machines", "read")).Get("/{id}", h.GetMachine)
			r.With(router.authz.Authorize("machines", "update_status")).Put("/{id}/status", h.SetMachineStatus)
		})

		r.Route("/findings", func(r chi.Router) {
			r.With(router.authz.Authorize("findings", "read")).Get("/", h.ListFindings)
			r.With(router.authz.Authorize("findings", "create")).Post("/", h.CreateFinding)
			r.With(router.authz.Authorize("findings", "update_status")).Put("/{id}/status", h.SetFindingStatus)
		})

		r.Route("/files", func(r chi.Router) {
			r.With(router.authz.Authorize("files", "read")).Get("/minio", h.ListMinIO)
			r.With(router.authz.Authorize("files", "write")).Post("/minio", h.UploadMinIO)
			r.With(router.authz.Authorize("files", "delete")).Delete("/minio", h.DeleteMinIO)
			r.With(router.authz.Authorize("files", "write")).Post("/imagekit", h.UploadImageKit)
			r.With(router.authz.Authorize("files", "read")).Get("/drive", h.ListDrive)
			r.With(router.authz.Authorize("files", "write")).Post("/drive", h.UploadDrive)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(router.authz.Authorize("users", "read")).Get("/users", h.ListUsers)
			r.With(router.authz.Authorize("users", "write")).Put("/users/{id}/active", h.SetUserActive)
			r.With(router.authz.Authorize("audit", "read")).Get("/audit", h.ListAuditEvents)
			r.With(auth.RequireRole(string(models.RoleAdmin))).Get("/performance", h.AdminPerformance)
		})

		r.Get("/ws", h.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return r
}
