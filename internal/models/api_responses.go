// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" with Data populated, or "error" with Error populated.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"family": "840D", "alarm": "700123", "address": "DB2.DBX182.3"},
//	  "metadata": {"timestamp": "2026-03-02T09:15:00Z"}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {"code": "INVALID_FORMAT", "message": "alarm must be six digits starting with 70"},
//	  "metadata": {"timestamp": "2026-03-02T09:15:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code ("VALIDATION_ERROR",
// "RECORD_NOT_FOUND", "STORAGE_ERROR", ...) and a human-readable message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse is returned on a successful login. The session cookie is set
// alongside; Token can be used as a Bearer credential instead. Writes made
// with the session cookie must echo CSRFToken in the X-CSRF-Token header.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CSRFToken string    `json:"csrfToken,omitempty"`
	User      User      `json:"user"`
}

// RegisterRequest is the body of POST /api/v1/auth/register. Role defaults to
// USER and Active to true.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER TECHNICIAN"`
	Active   *bool  `json:"active,omitempty"`
}

// AlarmRequest is the body of both alarm conversion endpoints. Value is an
// alarm number or a DB address depending on the direction.
type AlarmRequest struct {
	Value  string `json:"value" validate:"required,max=32"`
	Family string `json:"family,omitempty" validate:"omitempty,alarmfamily"`
}

// SetActiveRequest is the body of PUT /api/v1/admin/users/{id}/active.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// DeleteFileRequest is the body of DELETE /api/v1/files/minio.
type DeleteFileRequest struct {
	FileName string `json:"fileName" validate:"required,max=1024"`
}
