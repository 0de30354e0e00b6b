// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Package main provides the Machinelog HTTP server
//
// @title Machinelog API
// @version 1.0
// @description Machine maintenance records, findings and Siemens PLC alarm/DB address conversion.
// @description
// @description ## Alarm conversion
// @description
// @description PLC user alarms (70XXXX) map to bits of the alarm data block.
// @description On 840D alarm 70MMLL is `DB2.DBX{180 + MM*8 + LL/8}.{LL%8}`.
// @description On 828D alarms 700000-700247 are bits 0-247 of DB1600, so `DB1600.DBX{n/8}.{n%8}` with n = alarm - 700000.
// @description Both conversion endpoints are public.
// @description
// @description ## Authentication
// @description
// @description Log in via `/api/v1/auth/login`. The returned JWT may be sent as a Bearer token;
// @description the HTTP-only session cookie is accepted as well.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {"code": "OUT_OF_RANGE", "message": "..."},
// @description   "metadata": {"timestamp": "2026-03-01T08:00:00Z", "request_id": "..."}
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/machinelog/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT from /api/v1/auth/login, sent as "Bearer <token>". The session cookie is accepted as well.
//
// @tag.name Health
// @tag.description Liveness and readiness checks
//
// @tag.name Auth
// @tag.description Registration, login and session management
//
// @tag.name Alarms
// @tag.description Alarm number and DB address conversion for 840D and 828D controls
//
// @tag.name Records
// @tag.description Per-user machine records and tags
//
// @tag.name Machines
// @tag.description Machine registry and status
//
// @tag.name Findings
// @tag.description Problems raised against machines
//
// @tag.name Files
// @tag.description PDF and image storage in MinIO, ImageKit and Google Drive
//
// @tag.name Admin
// @tag.description User administration and request performance
package main
