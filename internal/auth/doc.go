// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package auth provides password hashing, JWT tokens, server-side sessions and
the authentication middleware that turns either one into a request Subject.

Key Components:

  - HashPassword / CheckPassword: bcrypt password storage
  - JWTManager: HS256 token generation and validation
  - SessionStore: MemorySessionStore (development) and BadgerSessionStore
    (persistent, github.com/dgraph-io/badger/v4)
  - Middleware: resolves a Subject from "Authorization: Bearer <jwt>" or the
    session cookie and stores it in the request context
  - SessionJanitor: suture service that purges expired sessions

Authentication Modes (AUTH_MODE):

  - jwt (default): Bearer token or session cookie required on protected routes
  - none: every request runs as the built-in local administrator; rejected by
    config validation in production

Usage Example:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	store, closer, err := auth.NewSessionStore(&cfg.Security)
	defer closer.Close()

	mw := auth.NewMiddleware(jwtManager, store, &cfg.Security)
	r.With(mw.RequireAuth).Get("/api/v1/records", h.ListRecords)

Thread Safety: all exported types are safe for concurrent use.
*/
package auth
