// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// AuditLogger writes authentication and data-change events under the
// "audit" component. Secrets never reach the output: tokens and session IDs
// pass through SanitizeToken first.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger returns an audit logger on top of the global logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: WithComponent("audit")}
}

// NewAuditLoggerWithLogger is used by tests to capture output.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuditLoggerWithLogger(l zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: l.With().Str("component", "audit").Logger()}
}

func (a *AuditLogger) event(ctx context.Context, level zerolog.Level, name string) *zerolog.Event {
	e := a.logger.WithLevel(level).Str("event", name)
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	return e
}

// LoginSucceeded records a successful password login.
func (a *AuditLogger) LoginSucceeded(ctx context.Context, username, role, ip, sessionID string) {
	a.event(ctx, zerolog.InfoLevel, "login_success").
		Str("username", SanitizeUsername(username)).
		Str("role", role).
		Str("ip", ip).
		Str("session", SanitizeToken(sessionID)).
		Msg("User logged in")
}

// LoginFailed records a rejected login. reason must not contain the password.
func (a *AuditLogger) LoginFailed(ctx context.Context, username, ip, reason string) {
	a.event(ctx, zerolog.WarnLevel, "login_failure").
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Login rejected")
}

// Logout records a session being destroyed.
func (a *AuditLogger) Logout(ctx context.Context, username, sessionID string) {
	a.event(ctx, zerolog.InfoLevel, "logout").
		Str("username", SanitizeUsername(username)).
		Str("session", SanitizeToken(sessionID)).
		Msg("User logged out")
}

// UserRegistered records a new account.
func (a *AuditLogger) UserRegistered(ctx context.Context, username, role, by string) {
	a.event(ctx, zerolog.InfoLevel, "user_registered").
		Str("username", SanitizeUsername(username)).
		Str("role", role).
		Str("by", by).
		Msg("User registered")
}

// Change records a create/update/delete of a domain entity.
func (a *AuditLogger) Change(ctx context.Context, action, entity, id, by string) {
	a.event(ctx, zerolog.InfoLevel, entity+"_"+action).
		Str("entity", entity).
		Str("id", id).
		Str("by", by).
		Msg("Entity changed")
}

// SanitizeToken keeps only enough of a token or session ID to correlate
// log lines.
func SanitizeToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= 8:
		return "***"
	default:
		return token[:4] + "..." + token[len(token)-4:]
	}
}

// SanitizeUsername bounds the length of user-supplied names in logs.
func SanitizeUsername(username string) string {
	const maxLen = 64
	if len(username) > maxLen {
		return username[:maxLen] + "..."
	}
	return username
}
