// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/machinelog/internal/audit"
	"github.com/tomtom215/machinelog/internal/auth"
	"github.com/tomtom215/machinelog/internal/authz"
	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/database"
	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/models"
	"github.com/tomtom215/machinelog/internal/storage"
)

const testJWTSecret = "test_secret_with_at_least_32_characters_for_testing"

// testEnv is a fully wired API backed by an in-memory SQLite database with
// the demo seed loaded.
type testEnv struct {
	cfg      *config.Config
	db       *database.DB
	sessions auth.SessionStore
	storage  *storage.Factory
	audit    *audit.Logger
	handler  *Handler
	server   http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Environment: "development"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		Security: config.SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         testJWTSecret,
			SessionTimeout:    time.Hour,
			SessionStore:      "memory",
			RateLimitDisabled: true,
		},
		Breaker: config.BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 5,
		},
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db, err := database.New(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Seed(context.Background(), auth.HashPassword)
	require.NoError(t, err)

	sessions, closer, err := auth.NewSessionStore(&cfg.Security)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	require.NoError(t, err)

	enforcer, err := authz.NewEnforcer(&cfg.Security.Casbin)
	require.NoError(t, err)

	factory := storage.NewFactory(&cfg.Storage, &cfg.Breaker)

	// Registered after the database cleanup so it flushes first.
	auditLog := audit.NewLogger(db, 100)
	t.Cleanup(func() { _ = auditLog.Close() })

	// Closed before the audit logger so in-flight changes reach it.
	bus, err := events.NewBus(events.Config{})
	require.NoError(t, err)
	busCtx, stopBus := context.WithCancel(context.Background())
	t.Cleanup(func() {
		_ = bus.Close()
		stopBus()
	})

	h := NewHandler(Deps{
		DB:         db,
		Config:     cfg,
		JWTManager: jwtManager,
		Sessions:   sessions,
		Auth:       auth.NewMiddleware(jwtManager, sessions, &cfg.Security, cfg.IsProduction()),
		Authz:      authz.NewMiddleware(enforcer),
		Storage:    factory,
		Audit:      auditLog,
		Events:     bus,
	})
	require.NoError(t, bus.Start(busCtx))

	return &testEnv{
		cfg:      cfg,
		db:       db,
		sessions: sessions,
		storage:  factory,
		audit:    auditLog,
		handler:  h,
		server:   NewRouter(h, ChiConfigFromSecurity(&cfg.Security)).Setup(),
	}
}

// do sends a JSON request through the full router. body may be nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

// login returns a Bearer token for a seeded or registered account.
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: username,
		Password: password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.LoginResponse
	decodeData(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// envelope mirrors models.APIResponse with Data left raw.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// decodeData unmarshals a success envelope's data into dst.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.Equal(t, "success", env.Status, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// errorCode returns the error code of an error envelope.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}
