// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the readiness payload.
type HealthStatus struct {
	Status            string            `json:"status"` // "ready" or "not_ready"
	DatabaseConnected bool              `json:"databaseConnected"`
	DatabaseDriver    string            `json:"databaseDriver,omitempty"`
	Storage           map[string]string `json:"storage,omitempty"` // backend -> breaker state
	WebSocketClients  int               `json:"websocketClients"`
	Uptime            float64           `json:"uptime"`
}

// HealthLive reports that the process is up.
//
// @Summary Liveness check
// @Description Returns 200 while the process is running, regardless of dependencies.
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady pings the database and reports breaker states.
//
// @Summary Readiness check
// @Description Returns 200 when the database answers a ping, 503 otherwise. Storage breaker states are informational.
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=HealthStatus} "Service is ready"
// @Failure 503 {object} models.APIResponse{data=HealthStatus} "Service is not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status: "ready",
		Uptime: time.Since(h.startTime).Seconds(),
	}

	if h.db != nil {
		status.DatabaseDriver = h.db.Driver()
		status.DatabaseConnected = h.db.Ping(r.Context()) == nil
	}
	if h.storage != nil {
		status.Storage = h.storage.BreakerStates()
	}
	if h.wsHub != nil {
		status.WebSocketClients = h.wsHub.ClientCount()
	}

	code := http.StatusOK
	if !status.DatabaseConnected {
		status.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, code, status)
}

// AdminPerformance returns per-route latency statistics and the most recent
// requests.
//
// @Summary Request performance statistics
// @Tags Admin
// @Produce json
// @Param recent query int false "Number of recent samples" default(50)
// @Success 200 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Security BearerAuth
// @Router /admin/performance [get]
func (h *Handler) AdminPerformance(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"endpoints": h.perfMon.Stats(),
		"recent":    h.perfMon.Recent(getIntParam(r, "recent", 50)),
	})
}
