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

// ListRecords returns the caller's records, newest first.
//
// @Summary List own records
// @Tags Records
// @Produce json
// @Param machineNumber query string false "Filter by machine number"
// @Param tag query string false "Filter by tag name"
// @Success 200 {object} models.APIResponse{data=[]models.Record}
// @Security BearerAuth
// @Router /records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := models.RecordFilter{
		MachineNumber: strings.TrimSpace(q.Get("machineNumber")),
		Tag:           strings.TrimSpace(q.Get("tag")),
	}

	records, err := h.db.ListRecords(r.Context(), subject.UserID, filter)
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	respondSuccess(w, r, http.StatusOK, records)
}

// CreateRecord stores a record, creating its machine and tags as needed.
//
// @Summary Create a record
// @Tags Records
// @Accept json
// @Produce json
// @Param request body models.RecordInput true "Record"
// @Success 201 {object} models.APIResponse{data=models.Record}
// @Failure 400 {object} models.APIResponse
// @Security BearerAuth
// @Router /records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	var in models.RecordInput
	if !decodeAndValidate(w, r, &in) {
		return
	}

	rec, err := h.db.CreateRecord(r.Context(), subject.UserID, in)
	if err != nil {
		h.dbError(w, r, err)
		return
	}

	h.invalidateListings()
	h.emit(r.Context(), events.Change{
		Action: "created", Entity: "record", ID: rec.ID, By: subject.Username,
		MessageType: ws.MessageTypeRecordCreated, UserID: subject.UserID,
	}, rec)
	respondSuccess(w, r, http.StatusCreated, rec)
}

// GetRecord returns one of the caller's records.
//
// @Summary Get a record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} models.APIResponse{data=models.Record}
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /records/{id} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	rec, err := h.db.GetRecord(r.Context(), subject.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, rec)
}

// UpdateRecord replaces a record's machine, description, image and tags.
//
// @Summary Update a record
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param request body models.RecordInput true "Record"
// @Success 200 {object} models.APIResponse{data=models.Record}
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /records/{id} [put]
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	var in models.RecordInput
	if !decodeAndValidate(w, r, &in) {
		return
	}

	rec, err := h.db.UpdateRecord(r.Context(), subject.UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		h.dbError(w, r, err)
		return
	}

	h.invalidateListings()
	h.emit(r.Context(), events.Change{
		Action: "updated", Entity: "record", ID: rec.ID, By: subject.Username,
		MessageType: ws.MessageTypeRecordUpdated, UserID: subject.UserID,
	}, rec)
	respondSuccess(w, r, http.StatusOK, rec)
}

// DeleteRecord removes one of the caller's records.
//
// @Summary Delete a record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /records/{id} [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteRecord(r.Context(), subject.UserID, id); err != nil {
		h.dbError(w, r, err)
		return
	}

	h.invalidateListings()
	h.emit(r.Context(), events.Change{
		Action: "deleted", Entity: "record", ID: id, By: subject.Username,
		MessageType: ws.MessageTypeRecordDeleted, UserID: subject.UserID,
	}, ws.RecordDeleted{ID: id})
	respondSuccess(w, r, http.StatusOK, ws.RecordDeleted{ID: id})
}

// ListTags returns every tag with its usage count.
//
// @Summary List tags
// @Tags Records
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.TagCount}
// @Security BearerAuth
// @Router /tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	if tags, ok := h.tagCache.Get(listingKey); ok {
		respondSuccess(w, r, http.StatusOK, tags)
		return
	}
	tags, err := h.db.ListTags(r.Context())
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	if tags == nil {
		tags = []models.TagCount{}
	}
	h.tagCache.Set(listingKey, tags)
	respondSuccess(w, r, http.StatusOK, tags)
}
