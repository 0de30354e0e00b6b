// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package authz

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/machinelog/internal/auth"
	"github.com/tomtom215/machinelog/internal/config"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(&config.CasbinConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	return e
}

func TestEnforce_EmbeddedPolicy(t *testing.T) {
	t.Parallel()
	e := newTestEnforcer(t)

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{"user", "records", "write", true},
		{"user", "machines", "read", true},
		{"user", "findings", "create", true},
		{"user", "machines", "update_status", false},
		{"user", "findings", "update_status", false},
		{"user", "users", "read", false},
		{"technician", "records", "read", true},
		{"technician", "machines", "update_status", true},
		{"technician", "findings", "update_status", true},
		{"technician", "users", "write", false},
		{"admin", "users", "write", true},
		{"admin", "machines", "update_status", true},
		{"ADMIN", "users", "read", true},
		{"", "records", "read", true},
		{"", "users", "read", false},
		{"guest", "records", "read", false},
	}

	for _, tt := range tests {
		got, err := e.Enforce(tt.role, tt.object, tt.action)
		if err != nil {
			t.Fatalf("Enforce(%q, %q, %q) error = %v", tt.role, tt.object, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%q, %q, %q) = %v, want %v", tt.role, tt.object, tt.action, got, tt.want)
		}
	}
}

func TestEnforce_Cached(t *testing.T) {
	t.Parallel()
	e := newTestEnforcer(t)

	if _, err := e.Enforce("user", "records", "read"); err != nil {
		t.Fatal(err)
	}
	allowed, ok := e.cache.get("user", "records", "read")
	if !ok || !allowed {
		t.Errorf("cache.get() = %v, %v; want cached allow", allowed, ok)
	}

	e.cache.now = func() time.Time { return time.Now().Add(CacheTTL + time.Second) }
	if _, ok := e.cache.get("user", "records", "read"); ok {
		t.Error("expired cache entry still returned")
	}
}

func TestNewEnforcer_PolicyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	policy := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(policy, []byte("p, user, records, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	e, err := NewEnforcer(&config.CasbinConfig{PolicyPath: policy})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	if ok, _ := e.Enforce("user", "records", "read"); !ok {
		t.Error("file policy not applied")
	}
	if ok, _ := e.Enforce("admin", "users", "read"); ok {
		t.Error("embedded policy leaked into file policy")
	}
}

func TestRoles(t *testing.T) {
	t.Parallel()
	e := newTestEnforcer(t)

	roles := map[string]bool{}
	for _, r := range e.Roles() {
		roles[r] = true
	}
	for _, want := range []string{"user", "technician", "admin"} {
		if !roles[want] {
			t.Errorf("Roles() missing %q: %v", want, e.Roles())
		}
	}
}

func TestAuthorizeMiddleware(t *testing.T) {
	t.Parallel()
	mw := NewMiddleware(newTestEnforcer(t))

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := mw.Authorize("machines", "update_status")(ok)

	tests := []struct {
		name    string
		subject *auth.Subject
		want    int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", &auth.Subject{Username: "u", Role: "USER"}, http.StatusForbidden},
		{"technician", &auth.Subject{Username: "t", Role: "TECHNICIAN"}, http.StatusNoContent},
		{"admin", &auth.Subject{Username: "a", Role: "ADMIN"}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/machines/1/status", nil)
			if tt.subject != nil {
				req = req.WithContext(auth.WithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if mw.Can(nil, "records", "read") {
		t.Error("Can(nil) = true")
	}
	if !mw.Can(&auth.Subject{Role: "ADMIN"}, "users", "write") {
		t.Error("Can(admin, users, write) = false")
	}
}
