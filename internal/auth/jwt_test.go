// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/machinelog/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func newTestJWTManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: timeout})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTManager(&config.SecurityConfig{JWTSecret: ""}); err == nil {
		t.Error("NewJWTManager() expected error for empty secret")
	}

	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	if m.Timeout() != 24*time.Hour {
		t.Errorf("default timeout = %v, want 24h", m.Timeout())
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()
	manager := newTestJWTManager(t, time.Hour)

	token, expiresAt, err := manager.GenerateToken("user-1", "alice", "ADMIN")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiresAt = %v, want about an hour from now", expiresAt)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" || claims.Role != "ADMIN" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	t.Parallel()
	manager := newTestJWTManager(t, time.Hour)

	expired := newTestJWTManager(t, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.GenerateToken("user-1", "alice", "USER")
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40)})
	if err != nil {
		t.Fatal(err)
	}
	foreignToken, _, err := other.GenerateToken("user-1", "alice", "USER")
	if err != nil {
		t.Fatal(err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: tokenIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]string{
		"expired":         expiredToken,
		"wrong secret":    foreignToken,
		"alg none":        noneToken,
		"wrong issuer":    wrongIssuer,
		"missing subject": noSubject,
		"garbage":         "not.a.token",
		"empty":           "",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := manager.ValidateToken(token); err == nil {
				t.Error("ValidateToken() expected error")
			}
		})
	}
}
