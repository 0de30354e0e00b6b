// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Package audit keeps the persistent audit trail.
//
// Every login, logout, registration and entity change is written twice: as a
// zerolog line through logging.AuditLogger, and as a models.AuditEvent in a
// Store. The database (database.DB) is the production store; MemoryStore
// serves tests.
//
// # Architecture
//
//	Logger.Change() -> event buffer (chan) -> writer goroutine -> Store
//	                        |
//	                  non-blocking, drops when full
//
// Handlers never wait on the store. When the buffer is full the event is
// dropped and counted; the log line is still written.
//
// RetentionService prunes events older than the configured retention and
// runs under the supervisor's data layer.
//
// # Event Types
//
//   - auth.login, auth.logout
//   - user.registered, user.activated, user.deactivated
//   - record.created, record.updated, record.deleted
//   - machine.status_changed, finding.created, finding.status_changed
//   - file.uploaded, file.deleted
package audit
