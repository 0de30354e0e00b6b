// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/machinelog/internal/cache"
	"github.com/tomtom215/machinelog/internal/logging"
)

// CSRF errors.
var (
	ErrCSRFTokenMissing = errors.New("CSRF token missing")
	ErrCSRFTokenInvalid = errors.New("CSRF token invalid")
	ErrCSRFTokenExpired = errors.New("CSRF token expired")
)

const (
	// CSRFCookieName is readable by scripts so the UI can echo it back.
	CSRFCookieName = "machinelog_csrf"
	// CSRFHeaderName carries the echoed token.
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenBytes = 32
)

// CSRF is double-submit cookie protection for session-authenticated writes.
//
// The session cookie is sent by the browser on cross-site form posts, so a
// state-changing request that authenticates with it must also carry the
// CSRF cookie's value in the X-CSRF-Token header. Requests with an
// Authorization header are exempt: a forged cross-site request cannot set
// one. Requests without a session cookie are exempt as well and fail
// authentication on their own.
type CSRF struct {
	sessionCookie string
	secure        bool
	ttl           time.Duration
	tokens        *cache.Cache[struct{}]
}

// NewCSRF creates the protector for the session cookie named sessionCookie.
// Issued tokens live for ttl.
func NewCSRF(sessionCookie string, secure bool, ttl time.Duration) *CSRF {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CSRF{
		sessionCookie: sessionCookie,
		secure:        secure,
		ttl:           ttl,
		tokens:        cache.New[struct{}](cache.Options{Name: "csrf_tokens", Capacity: 100000, TTL: ttl}),
	}
}

// Protect validates the token on unsafe methods. Safe methods with a
// session cookie get a fresh token when theirs is missing or unknown, which
// covers sessions that outlived a restart.
func (c *CSRF) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.applies(r) {
			next.ServeHTTP(w, r)
			return
		}

		if isSafeMethod(r.Method) {
			if !c.known(cookieValue(r, CSRFCookieName)) {
				c.Issue(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		if err := c.validate(r); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("CSRF validation failed")
			writeAuthError(w, http.StatusForbidden, "CSRF_FAILED", err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Issue generates a token, remembers it and sets the CSRF cookie. It returns
// the token, or "" when the random source fails.
func (c *CSRF) Issue(w http.ResponseWriter) string {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		logging.Error().Err(err).Msg("Failed to generate CSRF token")
		return ""
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	c.tokens.Set(token, struct{}{})

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		Secure:   c.secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// Revoke forgets the request's token and expires the cookie.
func (c *CSRF) Revoke(w http.ResponseWriter, r *http.Request) {
	if token := cookieValue(r, CSRFCookieName); token != "" {
		c.tokens.Delete(token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Tokens exposes the token store to a cache.Janitor.
func (c *CSRF) Tokens() cache.Pruner {
	return c.tokens
}

// applies reports whether r authenticates with the session cookie alone.
func (c *CSRF) applies(r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		return false
	}
	return cookieValue(r, c.sessionCookie) != ""
}

func (c *CSRF) validate(r *http.Request) error {
	cookieToken := cookieValue(r, CSRFCookieName)
	headerToken := r.Header.Get(CSRFHeaderName)
	if cookieToken == "" || headerToken == "" {
		return ErrCSRFTokenMissing
	}
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return ErrCSRFTokenInvalid
	}
	if !c.known(cookieToken) {
		return ErrCSRFTokenExpired
	}
	return nil
}

func (c *CSRF) known(token string) bool {
	if token == "" {
		return false
	}
	_, ok := c.tokens.Get(token)
	return ok
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
