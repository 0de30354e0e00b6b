// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package database persists users, machines, records, tags and findings.

Three database/sql drivers are supported and selected by DatabaseConfig.Driver:

  - duckdb (github.com/duckdb/duckdb-go/v2): default embedded store
  - sqlite (modernc.org/sqlite): pure-Go embedded store, used by the tests
  - mysql (github.com/go-sql-driver/mysql): shared server deployments

All SQL is written against the common subset of the three dialects: '?'
placeholders, VARCHAR/TEXT/BOOLEAN columns and a per-dialect timestamp type.
The schema is created with CREATE TABLE IF NOT EXISTS on startup. Foreign keys
are enforced in Go rather than with REFERENCES clauses, and record_tags carries
no key constraint, so that DuckDB's eager index checks never reject a tag set
replacement inside a transaction; duplicate join rows are collapsed on read.

Records are owner-scoped: every record operation takes the ID of the user
performing it and never returns or modifies another user's record. A record
that exists but belongs to someone else is reported as ErrRecordNotFound.

Timestamps are written in UTC by the DB's clock (db.now), which tests replace
for deterministic ordering.

Thread Safety: DB is safe for concurrent use; multi-statement operations run
in a single transaction.
*/
package database
