// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
database_schema.go - Database Schema Management

Tables:
  - users: login accounts (unique username, bcrypt hash, role, active flag)
  - machines: unique machine number, display name, ACTIVE/MAINTENANCE status
  - tags: unique tag names with optional description
  - records: owner-scoped maintenance notes about a machine
  - record_tags: record/tag join (no key constraint, see package doc)
  - findings: issues raised against a machine
  - audit_events: append-only audit trail, pruned by age

Schema Strategy:
Every table is created with CREATE TABLE IF NOT EXISTS on startup. Column
types are limited to what DuckDB, SQLite and MySQL all accept; the timestamp
column type comes from the dialect.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func (db *DB) getTableCreationQueries() []string {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(64) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL,
			active BOOLEAN NOT NULL,
			created_at {{TS}} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS machines (
			id VARCHAR(36) PRIMARY KEY,
			number VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at {{TS}} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			description TEXT,
			created_at {{TS}} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id VARCHAR(36) PRIMARY KEY,
			machine_id VARCHAR(36) NOT NULL,
			description TEXT NOT NULL,
			image_url TEXT NOT NULL,
			created_by VARCHAR(36) NOT NULL,
			created_at {{TS}} NOT NULL,
			updated_at {{TS}} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS record_tags (
			record_id VARCHAR(36) NOT NULL,
			tag_id VARCHAR(36) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id VARCHAR(36) PRIMARY KEY,
			machine_id VARCHAR(36) NOT NULL,
			text_description TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			created_by VARCHAR(36) NOT NULL,
			created_at {{TS}} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id VARCHAR(36) PRIMARY KEY,
			occurred_at {{TS}} NOT NULL,
			type VARCHAR(64) NOT NULL,
			outcome VARCHAR(16) NOT NULL,
			actor VARCHAR(128) NOT NULL,
			target_type VARCHAR(32) NOT NULL,
			target_id VARCHAR(255) NOT NULL,
			ip VARCHAR(64) NOT NULL,
			request_id VARCHAR(64) NOT NULL,
			detail TEXT NOT NULL
		)`,
	}

	for i, q := range queries {
		queries[i] = strings.ReplaceAll(q, "{{TS}}", db.dialect.timestampType)
	}
	return queries
}

// indexDef describes one secondary index.
type indexDef struct {
	name    string
	table   string
	columns string
}

var indexes = []indexDef{
	{"idx_records_owner_created", "records", "created_by, created_at"},
	{"idx_records_machine", "records", "machine_id"},
	{"idx_record_tags_record", "record_tags", "record_id"},
	{"idx_record_tags_tag", "record_tags", "tag_id"},
	{"idx_findings_machine", "findings", "machine_id"},
	{"idx_findings_created", "findings", "created_at"},
	{"idx_audit_occurred", "audit_events", "occurred_at"},
}

// createIndexes creates secondary indexes. MySQL lacks IF NOT EXISTS for
// indexes, so an "already exists" error is tolerated there.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, idx := range indexes {
		query := db.indexQuery(idx)
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			if isDuplicateIndexError(err) {
				continue
			}
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (db *DB) indexQuery(idx indexDef) string {
	if db.dialect.ifNotExistsIndex {
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
}
