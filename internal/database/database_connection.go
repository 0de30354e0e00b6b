// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
database_connection.go - Connection Pool and Transaction Helpers

Connection Pool Configuration:
  - duckdb: MaxOpenConns from config (default NumCPU), idle connections recycled after 5m
  - sqlite: a single long-lived connection so ":memory:" databases survive and
    writers never contend for the file lock
  - mysql: MaxOpenConns from config (default 10), 1h lifetime to cycle server-side timeouts

Error Detection:
Unique-constraint and duplicate-index errors are recognised per driver so
callers can map them to domain errors (ErrUsernameTaken) or ignore them
(index already present on MySQL).
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers.
const (
	mysqlErrDupKeyName = 1061
	mysqlErrDupEntry   = 1062
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() {
	switch db.dialect.name {
	case "sqlite":
		db.conn.SetMaxOpenConns(1)
		db.conn.SetMaxIdleConns(1)
		db.conn.SetConnMaxLifetime(0)
		db.conn.SetConnMaxIdleTime(0)
	case "mysql":
		db.conn.SetMaxOpenConns(db.maxOpenConns(10))
		db.conn.SetMaxIdleConns(2)
		db.conn.SetConnMaxLifetime(time.Hour)
		db.conn.SetConnMaxIdleTime(5 * time.Minute)
	default:
		db.conn.SetMaxOpenConns(db.maxOpenConns(runtime.NumCPU()))
		db.conn.SetMaxIdleConns(2)
		db.conn.SetConnMaxIdleTime(5 * time.Minute)
	}
}

func (db *DB) maxOpenConns(fallback int) int {
	if db.cfg.MaxOpenConns > 0 {
		return db.cfg.MaxOpenConns
	}
	return fallback
}

// withTx runs fn inside a transaction, committing on success.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueConstraintError reports whether err is a unique or primary key violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDupEntry
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate key") || // duckdb
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "violates primary key constraint")
}

// isDuplicateIndexError reports whether err means the index already exists.
func isDuplicateIndexError(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDupKeyName
}

// isConnectionError checks if an error indicates database connection loss
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "database is closed")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
