// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/models"
	ws "github.com/tomtom215/machinelog/internal/websocket"
)

// ListMachines returns every machine.
//
// @Summary List machines
// @Tags Machines
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.Machine}
// @Security BearerAuth
// @Router /machines [get]
func (h *Handler) ListMachines(w http.ResponseWriter, r *http.Request) {
	if machines, ok := h.machineCache.Get(listingKey); ok {
		respondSuccess(w, r, http.StatusOK, machines)
		return
	}
	machines, err := h.db.ListMachines(r.Context())
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	if machines == nil {
		machines = []models.Machine{}
	}
	h.machineCache.Set(listingKey, machines)
	respondSuccess(w, r, http.StatusOK, machines)
}

// GetMachine returns one machine.
//
// @Summary Get a machine
// @Tags Machines
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} models.APIResponse{data=models.Machine}
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /machines/{id} [get]
func (h *Handler) GetMachine(w http.ResponseWriter, r *http.Request) {
	m, err := h.db.GetMachine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, m)
}

// SetMachineStatus switches a machine between ACTIVE and MAINTENANCE.
//
// @Summary Change machine status
// @Tags Machines
// @Accept json
// @Produce json
// @Param id path string true "Machine ID"
// @Param request body models.StatusRequest true "ACTIVE or MAINTENANCE"
// @Success 200 {object} models.APIResponse{data=models.Machine}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /machines/{id}/status [put]
func (h *Handler) SetMachineStatus(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	var req models.StatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	status := models.MachineStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	m, err := h.db.SetMachineStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.dbError(w, r, err)
		return
	}

	h.machineCache.Clear()
	h.emit(r.Context(), events.Change{
		Action: "status_changed", Entity: "machine", ID: m.ID, By: subject.Username,
		MessageType: ws.MessageTypeMachineStatusChanged,
	}, m)
	respondSuccess(w, r, http.StatusOK, m)
}

// ListFindings returns findings newest first, optionally for one machine.
//
// @Summary List findings
// @Tags Findings
// @Produce json
// @Param machineId query string false "Filter by machine ID"
// @Success 200 {object} models.APIResponse{data=[]models.Finding}
// @Security BearerAuth
// @Router /findings [get]
func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	findings, err := h.db.ListFindings(r.Context(), r.URL.Query().Get("machineId"))
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, findings)
}

// CreateFinding raises a finding against a machine.
//
// @Summary Raise a finding
// @Tags Findings
// @Accept json
// @Produce json
// @Param request body models.FindingInput true "Finding"
// @Success 201 {object} models.APIResponse{data=models.Finding}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse "Machine not found"
// @Security BearerAuth
// @Router /findings [post]
func (h *Handler) CreateFinding(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	var in models.FindingInput
	if !decodeAndValidate(w, r, &in) {
		return
	}

	f, err := h.db.CreateFinding(r.Context(), subject.UserID, in)
	if err != nil {
		h.dbError(w, r, err)
		return
	}

	h.emit(r.Context(), events.Change{
		Action: "created", Entity: "finding", ID: f.ID, By: subject.Username,
		MessageType: ws.MessageTypeFindingCreated,
	}, f)
	respondSuccess(w, r, http.StatusCreated, f)
}

// SetFindingStatus moves a finding through OPEN, IN_PROGRESS and RESOLVED.
//
// @Summary Change finding status
// @Tags Findings
// @Accept json
// @Produce json
// @Param id path string true "Finding ID"
// @Param request body models.StatusRequest true "New status"
// @Success 200 {object} models.APIResponse{data=models.Finding}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /findings/{id}/status [put]
func (h *Handler) SetFindingStatus(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	var req models.StatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	status := models.FindingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	f, err := h.db.SetFindingStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.dbError(w, r, err)
		return
	}

	h.emit(r.Context(), events.Change{
		Action: "status_changed", Entity: "finding", ID: f.ID, By: subject.Username,
		MessageType: ws.MessageTypeFindingStatusChanged,
	}, f)
	respondSuccess(w, r, http.StatusOK, f)
}
