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

const userColumns = "id, username, password_hash, role, active, created_at"

// CreateUser inserts a new account. passwordHash must already be a bcrypt
// hash. Returns ErrUsernameTaken if the username exists.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string, role models.Role, active bool) (u *models.User, err error) {
	defer db.observe("insert", "users", time.Now(), &err)

	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	u = &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       active,
		CreatedAt:    db.now(),
	}

	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, string(u.Role), u.Active, u.CreatedAt,
	)
	if isUniqueConstraintError(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns ErrUserNotFound when no account matches.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (u *models.User, err error) {
	defer db.observe("select", "users", time.Now(), &err)
	return db.getUser(ctx, "username", username)
}

// GetUserByID returns ErrUserNotFound when no account matches.
func (db *DB) GetUserByID(ctx context.Context, id string) (u *models.User, err error) {
	defer db.observe("select", "users", time.Now(), &err)
	return db.getUser(ctx, "id", id)
}

func (db *DB) getUser(ctx context.Context, column, value string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all accounts ordered by username.
func (db *DB) ListUsers(ctx context.Context) (users []models.User, err error) {
	defer db.observe("select", "users", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeQuietly(rows)

	users = make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SetUserActive enables or disables an account. Inactive accounts cannot log in.
func (db *DB) SetUserActive(ctx context.Context, id string, active bool) (u *models.User, err error) {
	defer db.observe("update", "users", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx, "UPDATE users SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}
	return db.getUser(ctx, "id", id)
}

// CountUsers returns the number of accounts.
func (db *DB) CountUsers(ctx context.Context) (n int, err error) {
	defer db.observe("count", "users", time.Now(), &err)

	if err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func scanUser(s rowScanner) (*models.User, error) {
	var u models.User
	var role string
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
