// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package auth

import (
	"context"
	"errors"
	"strings"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeNone disables authentication
	AuthModeNone AuthMode = "none"

	// AuthModeJWT requires a Bearer token or session cookie
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode. Empty means jwt.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jwt", "":
		return AuthModeJWT, nil
	case "none":
		return AuthModeNone, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Subject is the authenticated identity attached to a request.
type Subject struct {
	UserID    string
	Username  string
	Role      string // upper-case models.Role value
	SessionID string // empty for Bearer-token requests
}

// localSubject is used for every request when AUTH_MODE=none.
var localSubject = Subject{UserID: "local", Username: "local", Role: "ADMIN"}

// HasRole reports whether the subject holds role, case-insensitively.
func (s *Subject) HasRole(role string) bool {
	return s != nil && strings.EqualFold(s.Role, role)
}

// HasAnyRole reports whether the subject holds any of roles.
func (s *Subject) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if s.HasRole(r) {
			return true
		}
	}
	return false
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// WithSubject returns ctx carrying subject.
func WithSubject(ctx context.Context, subject *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// GetSubject returns the request's Subject or nil.
func GetSubject(ctx context.Context) *Subject {
	s, _ := ctx.Value(subjectContextKey).(*Subject)
	return s
}
