// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/machinelog/internal/models"
)

const findingSelect = `SELECT f.id, f.machine_id, m.number, f.text_description, f.status, f.severity,
	f.created_by, COALESCE(u.username, ''), f.created_at
	FROM findings f
	JOIN machines m ON m.id = f.machine_id
	LEFT JOIN users u ON u.id = f.created_by`

// CreateFinding raises a finding against an existing machine. Status defaults
// to OPEN and severity to MEDIUM.
func (db *DB) CreateFinding(ctx context.Context, creator string, in models.FindingInput) (f *models.Finding, err error) {
	defer db.observe("insert", "findings", time.Now(), &err)

	in.MachineID = strings.TrimSpace(in.MachineID)
	if in.MachineID == "" || strings.TrimSpace(in.TextDescription) == "" {
		return nil, fmt.Errorf("%w: machine and description are required", ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = models.FindingOpen
	}
	if in.Severity == "" {
		in.Severity = models.SeverityMedium
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown finding status %q", ErrInvalidInput, in.Status)
	}
	if !in.Severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, in.Severity)
	}

	id := uuid.NewString()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		var machineID string
		err := tx.QueryRowContext(ctx, "SELECT id FROM machines WHERE id = ?", in.MachineID).Scan(&machineID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMachineNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to look up machine: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO findings (id, machine_id, text_description, status, severity, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, machineID, in.TextDescription, string(in.Status), string(in.Severity), creator, db.now(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.getFinding(ctx, id)
}

// ListFindings returns findings newest first. An empty machineID lists all.
func (db *DB) ListFindings(ctx context.Context, machineID string) (findings []models.Finding, err error) {
	defer db.observe("select", "findings", time.Now(), &err)

	query := findingSelect
	var args []any
	if machineID = strings.TrimSpace(machineID); machineID != "" {
		query += " WHERE f.machine_id = ?"
		args = append(args, machineID)
	}
	query += " ORDER BY f.created_at DESC, f.id DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer closeQuietly(rows)

	findings = make([]models.Finding, 0)
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, *f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}
	return findings, nil
}

// SetFindingStatus moves a finding to a new status.
func (db *DB) SetFindingStatus(ctx context.Context, id string, status models.FindingStatus) (f *models.Finding, err error) {
	defer db.observe("update", "findings", time.Now(), &err)

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown finding status %q", ErrInvalidInput, status)
	}

	res, err := db.conn.ExecContext(ctx, "UPDATE findings SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update finding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrFindingNotFound
	}
	return db.getFinding(ctx, id)
}

func (db *DB) getFinding(ctx context.Context, id string) (*models.Finding, error) {
	f, err := scanFinding(db.conn.QueryRowContext(ctx, findingSelect+" WHERE f.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFindingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	return f, nil
}

func scanFinding(s rowScanner) (*models.Finding, error) {
	var f models.Finding
	var status, severity string
	if err := s.Scan(&f.ID, &f.MachineID, &f.MachineNumber, &f.TextDescription, &status, &severity,
		&f.CreatedBy, &f.CreatorUsername, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Status = models.FindingStatus(status)
	f.Severity = models.Severity(severity)
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}
