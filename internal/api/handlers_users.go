// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/models"
)

// ListUsers returns every account.
//
// @Summary List users
// @Tags Admin
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.User}
// @Failure 403 {object} models.APIResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondSuccess(w, r, http.StatusOK, users)
}

// SetUserActive activates or deactivates an account. Deactivation also
// revokes the account's sessions.
//
// @Summary Activate or deactivate a user
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body models.SetActiveRequest true "Active flag"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 403 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /admin/users/{id}/active [put]
func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	var req models.SetActiveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if id == subject.UserID && !req.Active {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "cannot deactivate your own account", nil)
		return
	}

	user, err := h.db.SetUserActive(r.Context(), id, req.Active)
	if err != nil {
		h.dbError(w, r, err)
		return
	}

	if h.authMW != nil {
		h.authMW.ForgetAccount(user.ID)
	}
	if !user.Active && h.sessions != nil {
		n, err := h.sessions.DeleteByUserID(r.Context(), user.ID)
		if err != nil {
			logging.CtxErr(r.Context(), err).Str("user_id", user.ID).Msg("Failed to revoke sessions")
		} else if n > 0 {
			logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Int("sessions", n).Msg("Revoked sessions of deactivated user")
		}
	}

	action := "activated"
	if !user.Active {
		action = "deactivated"
	}
	h.emit(r.Context(), events.Change{Action: action, Entity: "user", ID: user.ID, By: subject.Username}, nil)
	respondSuccess(w, r, http.StatusOK, user)
}

// ListAuditEvents returns the audit trail, newest first.
//
// @Summary List audit events
// @Tags Admin
// @Produce json
// @Param type query string false "Event type, e.g. record.deleted"
// @Param actor query string false "Username"
// @Param targetType query string false "Entity type"
// @Param targetId query string false "Entity ID"
// @Param since query string false "RFC 3339 lower bound"
// @Param limit query int false "Page size (default 100, max 1000)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.APIResponse{data=[]models.AuditEvent}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Security BearerAuth
// @Router /admin/audit [get]
func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AuditFilter{
		Type:       q.Get("type"),
		Actor:      q.Get("actor"),
		TargetType: q.Get("targetType"),
		TargetID:   q.Get("targetId"),
		Limit:      getIntParam(r, "limit", 100),
		Offset:     getIntParam(r, "offset", 0),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "since must be an RFC 3339 timestamp", nil)
			return
		}
		filter.Since = t
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, events)
}
