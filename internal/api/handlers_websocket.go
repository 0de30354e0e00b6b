// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tomtom215/machinelog/internal/logging"
	ws "github.com/tomtom215/machinelog/internal/websocket"
)

// WebSocket upgrades the connection and subscribes it to the caller's
// record events and the shared machine and finding events.
//
// @Summary Realtime event stream
// @Tags Realtime
// @Success 101
// @Failure 401 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse "Realtime hub not running"
// @Security BearerAuth
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "REALTIME_UNAVAILABLE", "realtime updates are disabled", nil)
		return
	}

	conn, err := ws.Upgrader(h.checkOrigin).Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		logging.CtxErr(r.Context(), err).Msg("WebSocket upgrade failed")
		return
	}
	if h.wsHub.Attach(conn, subject.UserID) == nil {
		logging.Ctx(r.Context()).Debug().Msg("WebSocket attached after hub shutdown")
	}
}

// checkOrigin accepts same-host requests, requests without an Origin header
// and origins in the CORS allow list.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if h.config == nil {
		return false
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
