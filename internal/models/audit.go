// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package models

import "time"

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEvent is one entry of the persistent audit trail. Type is
// "<entity>.<action>", e.g. "auth.login", "record.deleted".
type AuditEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Outcome    string    `json:"outcome"`
	Actor      string    `json:"actor"`
	TargetType string    `json:"targetType,omitempty"`
	TargetID   string    `json:"targetId,omitempty"`
	IP         string    `json:"ip,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// AuditFilter selects audit events. Zero fields match everything.
type AuditFilter struct {
	Type       string
	Actor      string
	TargetType string
	TargetID   string
	Since      time.Time
	Limit      int
	Offset     int
}

// Matches reports whether e passes every set field of f. Limit and Offset
// are ignored.
func (f *AuditFilter) Matches(e *AuditEvent) bool {
	switch {
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.Actor != "" && e.Actor != f.Actor:
		return false
	case f.TargetType != "" && e.TargetType != f.TargetType:
		return false
	case f.TargetID != "" && e.TargetID != f.TargetID:
		return false
	case !f.Since.IsZero() && e.Timestamp.Before(f.Since):
		return false
	}
	return true
}
