// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package models defines the data structures shared by the database, API and
websocket layers.

Entities:
  - User: login account with a Role (ADMIN, USER, TECHNICIAN)
  - Machine: identified by a unique machine number, ACTIVE or MAINTENANCE
  - Record: a free-text maintenance note about a machine, owned by its creator
  - Tag: unique label attached to records
  - Finding: an issue raised against a machine with status and severity

API structures:
  - APIResponse, Metadata, APIError: the response envelope used by every endpoint
  - request DTOs (RecordInput, FindingInput, LoginRequest, ...) carrying
    validator tags checked by internal/validation

All identifiers are UUID strings. JSON field names are camelCase to match the
web frontend.
*/
package models
