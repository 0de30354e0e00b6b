// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/machinelog/internal/audit"
	"github.com/tomtom215/machinelog/internal/auth"
	"github.com/tomtom215/machinelog/internal/authz"
	"github.com/tomtom215/machinelog/internal/cache"
	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/database"
	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/middleware"
	"github.com/tomtom215/machinelog/internal/models"
	"github.com/tomtom215/machinelog/internal/storage"
	ws "github.com/tomtom215/machinelog/internal/websocket"
)

// Handler holds the dependencies of every endpoint.
//
// Handler methods are split by resource:
//   - handlers_health.go: liveness, readiness
//   - handlers_auth.go: register, login, logout, me
//   - handlers_alarm.go: alarm/address conversion
//   - handlers_records.go: records and tags
//   - handlers_machines.go: machines and findings
//   - handlers_files.go: blob uploads and the Google OAuth2 callback
//   - handlers_users.go: account administration and the audit trail
//   - handlers_websocket.go: realtime push
type Handler struct {
	db         *database.DB
	config     *config.Config
	jwtManager *auth.JWTManager
	sessions   auth.SessionStore
	authMW     *auth.Middleware
	authz      *authz.Middleware
	storage    *storage.Factory
	wsHub      *ws.Hub
	perfMon    *middleware.PerformanceMonitor
	audit      *audit.Logger
	events     *events.Bus
	startTime  time.Time

	// Shared listings, cleared by every write that can change them.
	tagCache     *cache.Cache[[]models.TagCount]
	machineCache *cache.Cache[[]models.Machine]
}

// listingKey is the single key of the listing caches.
const listingKey = "all"

// listingTTL bounds staleness from writes made outside this process.
const listingTTL = 30 * time.Second

// Deps are the collaborators NewHandler wires together. Hub and Storage may
// be nil; the endpoints that need them then answer 503. A nil Audit logs
// audit lines without persisting them. Events, when set, must not be
// started yet: NewHandler subscribes the audit and websocket consumers.
type Deps struct {
	DB         *database.DB
	Config     *config.Config
	JWTManager *auth.JWTManager
	Sessions   auth.SessionStore
	Auth       *auth.Middleware
	Authz      *authz.Middleware
	Storage    *storage.Factory
	Hub        *ws.Hub
	PerfMon    *middleware.PerformanceMonitor
	Audit      *audit.Logger
	Events     *events.Bus
}

// NewHandler creates the API handler.
func NewHandler(d Deps) *Handler {
	perfMon := d.PerfMon
	if perfMon == nil {
		perfMon = middleware.NewPerformanceMonitor(1000, time.Second)
	}
	auditLog := d.Audit
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, 0)
	}
	if d.Auth != nil && d.DB != nil {
		db := d.DB
		d.Auth.SetActiveCheck(func(ctx context.Context, userID string) (bool, error) {
			u, err := db.GetUserByID(ctx, userID)
			if errors.Is(err, database.ErrUserNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return u.Active, nil
		})
	}
	h := &Handler{
		db:         d.DB,
		config:     d.Config,
		jwtManager: d.JWTManager,
		sessions:   d.Sessions,
		authMW:     d.Auth,
		authz:      d.Authz,
		storage:    d.Storage,
		wsHub:      d.Hub,
		perfMon:    perfMon,
		audit:      auditLog,
		events:     d.Events,
		startTime:  time.Now(),

		tagCache:     cache.New[[]models.TagCount](cache.Options{Name: "tags", Capacity: 1, TTL: listingTTL}),
		machineCache: cache.New[[]models.Machine](cache.Options{Name: "machines", Capacity: 1, TTL: listingTTL}),
	}
	if d.Events != nil {
		if err := h.subscribeConsumers(d.Events); err != nil {
			// Changes still reach both consumers inline.
			logging.Error().Err(err).Msg("Event bus already started, consumers not subscribed")
			h.events = nil
		}
	}
	return h
}

// Caches returns the handler's caches for a cache.Janitor.
func (h *Handler) Caches() []cache.Pruner {
	caches := []cache.Pruner{h.tagCache, h.machineCache}
	if h.authMW != nil {
		caches = append(caches, h.authMW.AccountCache(), h.authMW.CSRF().Tokens())
	}
	return caches
}

// invalidateListings drops the cached tag and machine listings. Record
// writes touch both: tags are counted from records and an unknown machine
// number creates the machine.
func (h *Handler) invalidateListings() {
	h.tagCache.Clear()
	h.machineCache.Clear()
}

// subject returns the authenticated caller. Routes using it sit behind
// RequireAuth, so a nil result is a routing bug and answers 401.
func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (*auth.Subject, bool) {
	s := auth.GetSubject(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required", nil)
		return nil, false
	}
	return s, true
}

// dbError maps persistence errors to responses.
func (h *Handler) dbError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, database.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "RECORD_NOT_FOUND", "record not found", nil)
	case errors.Is(err, database.ErrMachineNotFound):
		respondError(w, http.StatusNotFound, "MACHINE_NOT_FOUND", "machine not found", nil)
	case errors.Is(err, database.ErrFindingNotFound):
		respondError(w, http.StatusNotFound, "FINDING_NOT_FOUND", "finding not found", nil)
	case errors.Is(err, database.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
	case errors.Is(err, database.ErrUsernameTaken):
		respondError(w, http.StatusBadRequest, "USERNAME_TAKEN", "username already exists", nil)
	default:
		logging.CtxErr(r.Context(), err).Str("path", r.URL.Path).Msg("Database error")
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "a database error occurred", nil)
	}
}

// secureCookies reports whether cookies should carry the Secure flag.
func (h *Handler) secureCookies() bool {
	return h.config != nil && h.config.IsProduction()
}
