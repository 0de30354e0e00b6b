// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/tomtom215/machinelog/internal/auth"
	"github.com/tomtom215/machinelog/internal/database"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/metrics"
	"github.com/tomtom215/machinelog/internal/models"
)

// Register creates an account.
//
// Role defaults to USER and Active to true. Any other role requires the
// caller to be an authenticated admin.
//
// @Summary Register a user
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "New account"
// @Success 201 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse "Missing fields or username taken"
// @Failure 403 {object} models.APIResponse "Only admins may grant TECHNICIAN or ADMIN"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	caller := auth.GetSubject(r.Context())
	if role != models.RoleUser && !caller.HasRole(string(models.RoleAdmin)) {
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "only an admin can create "+string(role)+" accounts", nil)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to register user", err)
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, hash, role, active)
	if err != nil {
		h.dbError(w, r, err)
		return
	}

	// Self-registration leaves by empty; the new account is its own actor.
	var by string
	if caller != nil {
		by = caller.Username
	}
	h.audit.UserRegistered(r.Context(), user.Username, string(user.Role), by)
	respondSuccess(w, r, http.StatusCreated, user)
}

// Login verifies credentials, opens a session and issues a JWT.
//
// @Summary Log in
// @Description Sets the session cookie and returns a Bearer token carrying the user's role.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse}
// @Failure 401 {object} models.APIResponse "Invalid credentials"
// @Failure 403 {object} models.APIResponse "Account inactive"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ip := clientIP(r)

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, database.ErrUserNotFound) {
		h.rejectLogin(w, r, req.Username, ip, "unknown_user")
		return
	}
	if err != nil {
		metrics.AuthLogins.WithLabelValues("error").Inc()
		h.dbError(w, r, err)
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		metrics.AuthLogins.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "login failed", err)
		return
	}
	if !ok {
		h.rejectLogin(w, r, req.Username, ip, "bad_password")
		return
	}
	if !user.Active {
		metrics.AuthLogins.WithLabelValues("inactive").Inc()
		h.audit.LoginFailed(r.Context(), user.Username, ip, "inactive")
		respondError(w, http.StatusForbidden, "ACCOUNT_INACTIVE", "account is deactivated", nil)
		return
	}

	session := auth.NewSession(user.ID, user.Username, string(user.Role), h.authMW.SessionTTL())
	if err := h.sessions.Create(r.Context(), session); err != nil {
		metrics.AuthLogins.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create session", err)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		metrics.AuthLogins.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to issue token", err)
		return
	}

	h.authMW.SetSessionCookie(w, session)
	csrfToken := h.authMW.CSRF().Issue(w)
	metrics.AuthLogins.WithLabelValues("success").Inc()
	h.audit.LoginSucceeded(r.Context(), user.Username, string(user.Role), ip, session.ID)

	respondSuccess(w, r, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		CSRFToken: csrfToken,
		User:      *user,
	})
}

// rejectLogin answers every credential failure identically.
func (h *Handler) rejectLogin(w http.ResponseWriter, r *http.Request, username, ip, reason string) {
	metrics.AuthLogins.WithLabelValues("bad_credentials").Inc()
	h.audit.LoginFailed(r.Context(), username, ip, reason)
	respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
}

// Logout destroys the caller's session and clears the cookie.
//
// @Summary Log out
// @Tags Auth
// @Produce json
// @Success 200 {object} models.APIResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	if subject.SessionID != "" {
		if err := h.sessions.Delete(r.Context(), subject.SessionID); err != nil {
			logging.CtxErr(r.Context(), err).Msg("Failed to delete session")
		}
	}
	h.authMW.ClearSessionCookie(w)
	h.authMW.CSRF().Revoke(w, r)
	h.audit.Logout(r.Context(), subject.Username, subject.SessionID)

	respondSuccess(w, r, http.StatusOK, map[string]bool{"loggedOut": true})
}

// Me returns the caller's account.
//
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 401 {object} models.APIResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}

	user, err := h.db.GetUserByID(r.Context(), subject.UserID)
	if errors.Is(err, database.ErrUserNotFound) {
		// Token outlived its account, or auth mode "none".
		respondSuccess(w, r, http.StatusOK, models.User{
			ID:       subject.UserID,
			Username: subject.Username,
			Role:     models.Role(subject.Role),
			Active:   true,
		})
		return
	}
	if err != nil {
		h.dbError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, user)
}

// clientIP prefers the address chi's RealIP middleware put in RemoteAddr.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
