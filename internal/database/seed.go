// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/models"
)

//go:embed seed_data.yaml
var seedYAML []byte

// seedData mirrors seed_data.yaml.
type seedData struct {
	Users []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
	Machines []struct {
		Number string `yaml:"number"`
		Status string `yaml:"status"`
	} `yaml:"machines"`
	Tags []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"tags"`
	Findings []struct {
		Machine     string `yaml:"machine"`
		Description string `yaml:"description"`
		Status      string `yaml:"status"`
		Severity    string `yaml:"severity"`
		CreatedBy   string `yaml:"created_by"`
	} `yaml:"findings"`
}

// PasswordHasher turns a plaintext password into a stored hash.
type PasswordHasher func(password string) (string, error)

// Seed loads the demo users, machines, tags and findings. It does nothing
// when any user already exists. Returns true if data was inserted.
func (db *DB) Seed(ctx context.Context, hash PasswordHasher) (bool, error) {
	n, err := db.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		logging.Debug().Int("users", n).Msg("Skipping seed, database already populated")
		return false, nil
	}

	var data seedData
	if err := yaml.Unmarshal(seedYAML, &data); err != nil {
		return false, fmt.Errorf("failed to parse seed data: %w", err)
	}

	// bcrypt is slow; hash outside the transaction.
	hashes := make([]string, len(data.Users))
	for i, u := range data.Users {
		h, err := hash(u.Password)
		if err != nil {
			return false, fmt.Errorf("failed to hash password for %s: %w", u.Username, err)
		}
		hashes[i] = h
	}

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		userIDs := make(map[string]string, len(data.Users))
		for i, u := range data.Users {
			role, ok := models.ParseRole(u.Role)
			if !ok {
				return fmt.Errorf("seed user %s: unknown role %q", u.Username, u.Role)
			}
			id := uuid.NewString()
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
				id, u.Username, hashes[i], string(role), true, db.now(),
			); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
			userIDs[u.Username] = id
		}

		machineIDs := make(map[string]string, len(data.Machines))
		for _, m := range data.Machines {
			machine, err := db.upsertMachine(ctx, tx, m.Number)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "UPDATE machines SET status = ? WHERE id = ?", m.Status, machine.ID); err != nil {
				return fmt.Errorf("seed machine %s: %w", m.Number, err)
			}
			machineIDs[m.Number] = machine.ID
		}

		for _, t := range data.Tags {
			if _, err := tx.ExecContext(ctx,
				db.dialect.insertIgnore+" tags (id, name, description, created_at) VALUES (?, ?, ?, ?)",
				uuid.NewString(), t.Name, t.Description, db.now(),
			); err != nil {
				return fmt.Errorf("seed tag %s: %w", t.Name, err)
			}
		}

		for _, f := range data.Findings {
			machineID, ok := machineIDs[f.Machine]
			if !ok {
				return fmt.Errorf("seed finding: unknown machine %s", f.Machine)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO findings (id, machine_id, text_description, status, severity, created_by, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), machineID, f.Description, f.Status, f.Severity, userIDs[f.CreatedBy], db.now(),
			); err != nil {
				return fmt.Errorf("seed finding on %s: %w", f.Machine, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	logging.Info().
		Int("users", len(data.Users)).
		Int("machines", len(data.Machines)).
		Int("tags", len(data.Tags)).
		Int("findings", len(data.Findings)).
		Msg("Seeded demo data")
	return true, nil
}
