// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/machinelog/internal/cache"
	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/models"
)

// Middleware resolves the request Subject from a Bearer token or the session
// cookie.
type Middleware struct {
	jwtManager   *JWTManager
	sessions     SessionStore
	authMode     AuthMode
	cookieName   string
	cookieSecure bool
	sessionTTL   time.Duration

	// activeCheck, when set, is consulted for bearer tokens so that a
	// deactivated account loses access before its token expires.
	activeCheck ActiveCheck
	active      *cache.Cache[bool]

	csrf *CSRF
}

// ActiveCheck reports whether the account with userID may still
// authenticate.
type ActiveCheck func(ctx context.Context, userID string) (bool, error)

// ErrAccountInactive is returned for valid tokens of deactivated accounts.
var ErrAccountInactive = errors.New("account is deactivated")

// activeCacheTTL bounds how long a deactivation made by another replica
// goes unnoticed.
const activeCacheTTL = 30 * time.Second

// NewMiddleware creates the authentication middleware. An unknown auth mode
// falls back to jwt.
func NewMiddleware(jwtManager *JWTManager, sessions SessionStore, cfg *config.SecurityConfig, secureCookies bool) *Middleware {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		logging.Warn().Str("auth_mode", cfg.AuthMode).Msg("Unknown auth mode, using jwt")
		mode = AuthModeJWT
	}

	cookieName := cfg.SessionCookieName
	if cookieName == "" {
		cookieName = "machinelog_session"
	}

	return &Middleware{
		csrf:         NewCSRF(cookieName, secureCookies, jwtManager.Timeout()),
		jwtManager:   jwtManager,
		sessions:     sessions,
		authMode:     mode,
		cookieName:   cookieName,
		cookieSecure: secureCookies,
		sessionTTL:   jwtManager.Timeout(),
		active:       cache.New[bool](cache.Options{Name: "account_active", Capacity: 10000, TTL: activeCacheTTL}),
	}
}

// SetActiveCheck installs the account status lookup used on the bearer path.
func (m *Middleware) SetActiveCheck(check ActiveCheck) {
	m.activeCheck = check
}

// ForgetAccount drops the cached status of userID so the next request
// re-reads it.
func (m *Middleware) ForgetAccount(userID string) {
	m.active.Delete(userID)
}

// AccountCache exposes the status cache for a cache.Janitor.
func (m *Middleware) AccountCache() cache.Pruner {
	return m.active
}

func (m *Middleware) accountActive(ctx context.Context, userID string) error {
	if m.activeCheck == nil {
		return nil
	}
	active, ok := m.active.Get(userID)
	if !ok {
		var err error
		active, err = m.activeCheck(ctx, userID)
		if err != nil {
			return err
		}
		m.active.Set(userID, active)
	}
	if !active {
		return ErrAccountInactive
	}
	return nil
}

// Authenticate attaches a Subject when valid credentials are present and
// otherwise passes the request through unchanged.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.resolve(r)
		if err != nil {
			if !errors.Is(err, ErrNoCredentials) {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Ignoring invalid credentials")
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithSubject(r.Context(), subject)
		ctx = logging.ContextWithUsername(ctx, subject.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without valid credentials with 401.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.resolve(r)
		if err != nil {
			if !errors.Is(err, ErrNoCredentials) {
				logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			}
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		ctx := WithSubject(r.Context(), subject)
		ctx = logging.ContextWithUsername(ctx, subject.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only subjects holding one of roles. Must run after
// RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetSubject(r.Context())
			if subject == nil {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if !subject.HasAnyRole(roles...) {
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolve checks the Authorization header first, then the session cookie.
func (m *Middleware) resolve(r *http.Request) (*Subject, error) {
	if m.authMode == AuthModeNone {
		s := localSubject
		return &s, nil
	}

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := bearerToken(header)
		if !ok {
			return nil, errors.New("invalid authorization header")
		}
		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		if err := m.accountActive(r.Context(), claims.Subject); err != nil {
			return nil, err
		}
		return &Subject{UserID: claims.Subject, Username: claims.Username, Role: claims.Role}, nil
	}

	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoCredentials
	}

	session, err := m.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}

	// Sliding expiry.
	if err := m.sessions.Touch(r.Context(), session.ID, time.Now().Add(m.sessionTTL)); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to touch session")
	}
	return session.Subject(), nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// SetSessionCookie writes the HttpOnly session cookie.
func (m *Middleware) SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		Secure:   m.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (m *Middleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CSRF returns the protector bound to the session cookie.
func (m *Middleware) CSRF() *CSRF {
	return m.csrf
}

// SessionTTL is the lifetime of new sessions.
func (m *Middleware) SessionTTL() time.Duration {
	return m.sessionTTL
}

// Mode returns the active authentication mode.
func (m *Middleware) Mode() AuthMode {
	return m.authMode
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode auth error")
	}
}
