// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/machinelog/internal/models"
)

const (
	auditColumns      = "id, occurred_at, type, outcome, actor, target_type, target_id, ip, request_id, detail"
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// SaveAuditEvent appends an event to the audit trail. A missing ID or
// timestamp is filled in.
func (db *DB) SaveAuditEvent(ctx context.Context, e *models.AuditEvent) (err error) {
	defer db.observe("insert", "audit_events", time.Now(), &err)

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = db.now()
	}

	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO audit_events ("+auditColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Timestamp.UTC(), e.Type, e.Outcome, e.Actor, e.TargetType, e.TargetID, e.IP, e.RequestID, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns matching events, newest first. Limit defaults to
// 100 and is capped at 1000.
func (db *DB) ListAuditEvents(ctx context.Context, f models.AuditFilter) (events []models.AuditEvent, err error) {
	defer db.observe("select", "audit_events", time.Now(), &err)

	var conds []string
	var args []any
	add := func(column, value string) {
		if value != "" {
			conds = append(conds, column+" = ?")
			args = append(args, value)
		}
	}
	add("type", f.Type)
	add("actor", f.Actor)
	add("target_type", f.TargetType)
	add("target_id", f.TargetID)
	if !f.Since.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.Since.UTC())
	}

	query := "SELECT " + auditColumns + " FROM audit_events"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, max(f.Offset, 0))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer closeQuietly(rows)

	events = make([]models.AuditEvent, 0)
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Outcome, &e.Actor,
			&e.TargetType, &e.TargetID, &e.IP, &e.RequestID, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

// DeleteAuditEventsBefore removes events older than cutoff and returns how
// many were removed.
func (db *DB) DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (n int64, err error) {
	defer db.observe("delete", "audit_events", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx, "DELETE FROM audit_events WHERE occurred_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	n, _ = res.RowsAffected()
	return n, nil
}
