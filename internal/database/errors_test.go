// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

// mockCloser implements io.Closer for testing
type mockCloser struct {
	closed bool
	err    error
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.err
}

func TestCloseQuietly(t *testing.T) {
	t.Run("nil closer does not panic", func(t *testing.T) {
		closeQuietly(nil)
	})

	t.Run("error during close is ignored", func(t *testing.T) {
		closer := &mockCloser{err: errors.New("close failed")}
		closeQuietly(closer)

		if !closer.closed {
			t.Error("Expected closer to be closed even with error")
		}
	})
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no rows", sql.ErrNoRows, true},
		{"wrapped record", fmt.Errorf("get: %w", ErrRecordNotFound), true},
		{"user", ErrUserNotFound, true},
		{"machine", ErrMachineNotFound, true},
		{"finding", ErrFindingNotFound, true},
		{"invalid input", ErrInvalidInput, false},
		{"other", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite", errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"), true},
		{"duckdb", errors.New(`Constraint Error: Duplicate key "username: admin" violates unique constraint`), true},
		{"mysql duplicate entry", &mysql.MySQLError{Number: mysqlErrDupEntry, Message: "Duplicate entry"}, true},
		{"mysql other", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, false},
		{"unrelated", errors.New("syntax error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueConstraintError(tt.err); got != tt.want {
				t.Errorf("isUniqueConstraintError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDuplicateIndexError(t *testing.T) {
	t.Parallel()

	if !isDuplicateIndexError(fmt.Errorf("create: %w", &mysql.MySQLError{Number: mysqlErrDupKeyName})) {
		t.Error("expected MySQL 1061 to be a duplicate index error")
	}
	if isDuplicateIndexError(errors.New("Duplicate key name")) {
		t.Error("plain errors must not match")
	}
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{sql.ErrConnDone, true},
		{mysql.ErrInvalidConn, true},
		{errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"), true},
		{errors.New("sql: database is closed"), true},
		{ErrRecordNotFound, false},
	}

	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.want {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	for n, want := range map[int]string{0: "", 1: "?", 3: "?, ?, ?"} {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}
