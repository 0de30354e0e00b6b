// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/machinelog/internal/models"
)

func userByName(t *testing.T, env *testEnv, token, username string) models.User {
	t.Helper()
	w := env.do(t, http.MethodGet, "/api/v1/admin/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var users []models.User
	decodeData(t, w, &users)
	for _, u := range users {
		if u.Username == username {
			return u
		}
	}
	t.Fatalf("user %s not found", username)
	return models.User{}
}

func TestAdminUsers_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	for _, creds := range [][2]string{{"user", "user123"}, {"technician", "tech123"}} {
		token := env.login(t, creds[0], creds[1])
		w := env.do(t, http.MethodGet, "/api/v1/admin/users", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, creds[0])
		w = env.do(t, http.MethodPut, "/api/v1/admin/users/x/active", token, models.SetActiveRequest{})
		assert.Equal(t, http.StatusForbidden, w.Code, creds[0])
	}
}

func TestAdminUsers_List(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	u := userByName(t, env, token, "technician")
	assert.Equal(t, models.RoleTechnician, u.Role)
	assert.True(t, u.Active)
}

func TestSetUserActive_RevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin123")

	userToken := env.login(t, "user", "user123")
	w := env.do(t, http.MethodPost, "/api/v1/records", userToken, models.RecordInput{MachineNumber: "MCH001", Description: "before deactivation"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	target := userByName(t, env, adminToken, "user")
	before, err := env.sessions.Count(context.Background())
	require.NoError(t, err)
	require.Positive(t, before)

	w = env.do(t, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/active", adminToken, models.SetActiveRequest{Active: false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.User
	decodeData(t, w, &updated)
	assert.False(t, updated.Active)

	after, err := env.sessions.Count(context.Background())
	require.NoError(t, err)
	assert.Less(t, after, before)

	// The bearer token issued before deactivation is no longer accepted.
	w = env.do(t, http.MethodPost, "/api/v1/records", userToken, models.RecordInput{MachineNumber: "MCH001", Description: "after deactivation"})
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Username: "user", Password: "user123"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/admin/users/"+target.ID+"/active", adminToken, models.SetActiveRequest{Active: true})
	require.Equal(t, http.StatusOK, w.Code)
	fresh := env.login(t, "user", "user123")
	w = env.do(t, http.MethodGet, "/api/v1/records", fresh, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetUserActive_Guards(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin123")
	admin := userByName(t, env, adminToken, "admin")

	w := env.do(t, http.MethodPut, "/api/v1/admin/users/"+admin.ID+"/active", adminToken, models.SetActiveRequest{Active: false})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/admin/users/missing/active", adminToken, models.SetActiveRequest{Active: true})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCode(t, w))
}

func TestListAuditEvents(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin123")
	userToken := env.login(t, "user", "user123")

	w := env.do(t, http.MethodPost, "/api/v1/records", userToken, models.RecordInput{
		MachineNumber: "MCH001",
		Description:   "Spindle noise at 8000 rpm",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec models.Record
	decodeData(t, w, &rec)

	var events []models.AuditEvent
	require.Eventually(t, func() bool {
		w := env.do(t, http.MethodGet, "/api/v1/admin/audit?type=record.created", adminToken, nil)
		if w.Code != http.StatusOK {
			return false
		}
		decodeData(t, w, &events)
		return len(events) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "user", events[0].Actor)
	assert.Equal(t, "record", events[0].TargetType)
	assert.Equal(t, rec.ID, events[0].TargetID)
	assert.Equal(t, models.OutcomeSuccess, events[0].Outcome)

	require.Eventually(t, func() bool {
		w := env.do(t, http.MethodGet, "/api/v1/admin/audit?type=auth.login&actor=admin", adminToken, nil)
		if w.Code != http.StatusOK {
			return false
		}
		var logins []models.AuditEvent
		decodeData(t, w, &logins)
		return len(logins) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodGet, "/api/v1/admin/audit", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/admin/audit?since=yesterday", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeValidation, errorCode(t, w))
}
