// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package authz

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/machinelog/internal/auth"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/models"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize allows the request only if the subject's role may perform action
// on object. Must run after auth.Middleware.RequireAuth.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.GetSubject(r.Context())
			if subject == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			allowed, err := m.enforcer.Enforce(subject.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization failed")
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Debug().
					Str("role", subject.Role).
					Str("object", object).
					Str("action", action).
					Msg("Access denied")
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Can reports whether subject may perform action on object. A nil subject
// is never allowed.
func (m *Middleware) Can(subject *auth.Subject, object, action string) bool {
	if subject == nil {
		return false
	}
	allowed, err := m.enforcer.Enforce(subject.Role, object, action)
	if err != nil {
		logging.Error().Err(err).Msg("Authorization error")
		return false
	}
	return allowed
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}
