// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package api exposes the HTTP API under /api/v1 using the chi router.

Route groups:

	/api/v1/health      liveness and readiness checks (public)
	/api/v1/auth        register, login, logout, me
	/api/v1/alarms      PLC alarm number <-> DB address conversion (public)
	/api/v1/oauth2      Google OAuth2 authorize and callback for Drive access
	/api/v1/records     the caller's machine records
	/api/v1/tags        tag usage counts
	/api/v1/machines    machines and their ACTIVE/MAINTENANCE status
	/api/v1/findings    issues raised against machines
	/api/v1/files       MinIO, ImageKit and Google Drive uploads
	/api/v1/admin       account administration, audit trail and request statistics
	/api/v1/ws          realtime events over a websocket
	/metrics            Prometheus exposition
	/swagger/*          OpenAPI UI

Every JSON response uses models.APIResponse. Errors carry a machine readable
code such as VALIDATION_ERROR, RECORD_NOT_FOUND or OUT_OF_RANGE.

Authentication is resolved by auth.Middleware (Bearer JWT or session cookie)
and authorization by the Casbin-backed authz.Middleware, keyed by resource
and action.

The tag and machine listings are served from internal/cache and cleared by
the writes that change them.
*/
package api
