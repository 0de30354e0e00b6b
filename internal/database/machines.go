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

const machineColumns = "id, number, name, status, created_at"

// UpsertMachine returns the machine with the given number, creating it with
// the default name and ACTIVE status when it does not exist.
func (db *DB) UpsertMachine(ctx context.Context, number string) (m *models.Machine, err error) {
	defer db.observe("upsert", "machines", time.Now(), &err)

	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("%w: machine number is required", ErrInvalidInput)
	}

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		m, txErr = db.upsertMachine(ctx, tx, number)
		return txErr
	})
	return m, err
}

// upsertMachine inserts the machine when missing and reads it back. The
// insert is a no-op when the number already exists.
func (db *DB) upsertMachine(ctx context.Context, q querier, number string) (*models.Machine, error) {
	query := db.dialect.insertIgnore + " machines (" + machineColumns + ") VALUES (?, ?, ?, ?, ?)"
	if _, err := q.ExecContext(ctx, query,
		uuid.NewString(), number, models.DefaultMachineName(number), string(models.MachineActive), db.now(),
	); err != nil {
		return nil, fmt.Errorf("failed to upsert machine %s: %w", number, err)
	}

	row := q.QueryRowContext(ctx, "SELECT "+machineColumns+" FROM machines WHERE number = ?", number)
	m, err := scanMachine(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine %s: %w", number, err)
	}
	return m, nil
}

// ListMachines returns every machine ordered by number.
func (db *DB) ListMachines(ctx context.Context) (machines []models.Machine, err error) {
	defer db.observe("select", "machines", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx, "SELECT "+machineColumns+" FROM machines ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("failed to query machines: %w", err)
	}
	defer closeQuietly(rows)

	machines = make([]models.Machine, 0)
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		machines = append(machines, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machines: %w", err)
	}
	return machines, nil
}

// GetMachine looks a machine up by ID.
func (db *DB) GetMachine(ctx context.Context, id string) (m *models.Machine, err error) {
	defer db.observe("select", "machines", time.Now(), &err)

	row := db.conn.QueryRowContext(ctx, "SELECT "+machineColumns+" FROM machines WHERE id = ?", id)
	m, err = scanMachine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMachineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get machine: %w", err)
	}
	return m, nil
}

// SetMachineStatus changes a machine's status and returns the updated machine.
func (db *DB) SetMachineStatus(ctx context.Context, id string, status models.MachineStatus) (m *models.Machine, err error) {
	defer db.observe("update", "machines", time.Now(), &err)

	if status != models.MachineActive && status != models.MachineMaintenance {
		return nil, fmt.Errorf("%w: unknown machine status %q", ErrInvalidInput, status)
	}

	res, err := db.conn.ExecContext(ctx, "UPDATE machines SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update machine status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrMachineNotFound
	}
	return db.GetMachine(ctx, id)
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(s rowScanner) (*models.Machine, error) {
	var m models.Machine
	var status string
	if err := s.Scan(&m.ID, &m.Number, &m.Name, &status, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Status = models.MachineStatus(status)
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}
