// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/models"
	"github.com/tomtom215/machinelog/internal/storage"
)

// multipartRequest builds an authenticated upload request with one "file" part.
func multipartRequest(t *testing.T, path, token, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestMinIO_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user", "user123")

	w := env.do(t, http.MethodGet, "/api/v1/files/minio", token, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORAGE_NOT_CONFIGURED", errorCode(t, w))

	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, multipartRequest(t, "/api/v1/files/minio", token, "manual.pdf", "%PDF-1.4"))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/files/minio", token, models.DeleteFileRequest{FileName: "1700000000000-manual.pdf"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMinIO_DeleteRequiresFileName(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user", "user123")

	w := env.do(t, http.MethodDelete, "/api/v1/files/minio", token, map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestUploadImageKit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if user, _, ok := r.BasicAuth(); !ok || user != "private_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"fileId":"ik_1","name":"spindle.jpg","url":"https://ik.imagekit.io/demo/spindle.jpg","size":5,"fileType":"image"}`))
	})
	ik := httptest.NewServer(mux)
	t.Cleanup(ik.Close)

	env := newTestEnv(t, func(c *config.Config) {
		c.Storage.ImageKit = config.ImageKitConfig{
			PrivateKey: "private_test",
			UploadURL:  ik.URL + "/upload",
			APIURL:     ik.URL + "/v1/",
			Folder:     "/machine-records",
		}
	})
	token := env.login(t, "user", "user123")

	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, multipartRequest(t, "/api/v1/files/imagekit", token, "spindle.jpg", "image"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var obj storage.Object
	decodeData(t, w, &obj)
	assert.Equal(t, "https://ik.imagekit.io/demo/spindle.jpg", obj.URL)
	assert.Equal(t, "ik_1", obj.Key)
}

func TestUpload_NoFile(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Storage.ImageKit.PrivateKey = "private_test"
	})
	token := env.login(t, "user", "user123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/imagekit", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDrive_RequiresGoogleToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user", "user123")

	w := env.do(t, http.MethodGet, "/api/v1/files/drive", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "DRIVE_NOT_CONNECTED", errorCode(t, w))
}

func TestListDrive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.cookie-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"id":"d1","name":"wiring.pdf","mimeType":"application/pdf","createdTime":"2026-02-01T09:00:00Z"}]}`))
	})
	driveSrv := httptest.NewServer(mux)
	t.Cleanup(driveSrv.Close)

	env := newTestEnv(t)
	env.storage.SetDriveEndpoint(driveSrv.URL + "/")
	token := env.login(t, "user", "user123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/drive", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.AddCookie(&http.Cookie{Name: GoogleTokenCookie, Value: "ya29.cookie-token"})
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var objects []storage.Object
	decodeData(t, w, &objects)
	require.Len(t, objects, 1)
	assert.Equal(t, "wiring.pdf", objects[0].Name)
	assert.Equal(t, "https://drive.google.com/file/d/d1/view", objects[0].URL)
}

func newOAuthEnv(t *testing.T) *testEnv {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.exchanged","token_type":"Bearer","expires_in":3600}`))
	})
	google := httptest.NewServer(mux)
	t.Cleanup(google.Close)

	env := newTestEnv(t, func(c *config.Config) {
		c.Storage.Drive = config.DriveConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:3000/api/v1/oauth2/callback",
		}
	})
	env.storage.SetOAuthEndpoint(google.URL+"/auth", google.URL+"/token")
	return env
}

// oauthCallback calls the callback with query plus a state matching the
// state cookie, as a browser returning from Google would.
func oauthCallback(env *testEnv, query string) *httptest.ResponseRecorder {
	const state = "state-from-authorize"
	sep := "?"
	if strings.Contains(query, "?") {
		sep = "&"
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth2/callback"+query+sep+"state="+state, nil)
	req.AddCookie(&http.Cookie{Name: googleStateCookie, Value: state})
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	return w
}

func TestOAuthCallback_Success(t *testing.T) {
	env := newOAuthEnv(t)

	w := oauthCallback(env, "?code=good-code")
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	var tokenCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == GoogleTokenCookie {
			tokenCookie = c
		}
	}
	require.NotNil(t, tokenCookie)
	assert.Equal(t, "ya29.exchanged", tokenCookie.Value)
	assert.True(t, tokenCookie.HttpOnly)
	assert.False(t, tokenCookie.Secure, "development cookies are not Secure")
	assert.Equal(t, 7*24*3600, tokenCookie.MaxAge)
	assert.Equal(t, "/", tokenCookie.Path)
}

func TestOAuthCallback_Errors(t *testing.T) {
	env := newOAuthEnv(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing code", "", http.StatusBadRequest},
		{"provider error", "?error=access_denied", http.StatusBadRequest},
		{"rejected code", "?code=bad-code", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := oauthCallback(env, tt.query)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Equal(t, "OAUTH_ERROR", errorCode(t, w))
			for _, c := range w.Result().Cookies() {
				assert.NotEqual(t, GoogleTokenCookie, c.Name)
			}
		})
	}
}

func TestOAuthCallback_RequiresStateCookie(t *testing.T) {
	env := newOAuthEnv(t)

	// A valid code without the cookie set by /authorize is refused before
	// any exchange happens.
	for _, query := range []string{"?code=good-code", "?code=good-code&state=guessed"} {
		w := env.do(t, http.MethodGet, "/api/v1/oauth2/callback"+query, "", nil)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "OAUTH_ERROR", errorCode(t, w))
		for _, c := range w.Result().Cookies() {
			assert.NotEqual(t, GoogleTokenCookie, c.Name)
		}
	}
}

func TestOAuthCallback_NotConfigured(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/oauth2/callback?code=abc", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORAGE_NOT_CONFIGURED", errorCode(t, w))
}

func TestOAuthAuthorize_StateRoundTrip(t *testing.T) {
	env := newOAuthEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/oauth2/authorize", "", nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", loc.Path)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == googleStateCookie {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.Equal(t, state, stateCookie.Value)

	// Mismatched state is rejected.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth2/callback?code=good-code&state=forged", nil)
	req.AddCookie(stateCookie)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/oauth2/callback?code=good-code&state="+state, nil)
	req.AddCookie(stateCookie)
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
}

func TestStorageErrorMapping(t *testing.T) {
	h := &Handler{}
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{storage.ErrNotConfigured, http.StatusServiceUnavailable, "STORAGE_NOT_CONFIGURED"},
		{storage.ErrUnavailable, http.StatusServiceUnavailable, ErrCodeStorageOffline},
		{storage.ErrNotFound, http.StatusNotFound, "FILE_NOT_FOUND"},
		{storage.ErrInvalidKey, http.StatusBadRequest, ErrCodeValidation},
		{fmt.Errorf("drive list: %w", storage.ErrUnauthorized), http.StatusUnauthorized, ErrCodeDriveNotConnected},
		{errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeStorage},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		h.storageError(w, r, storage.BackendMinIO, tt.err)
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
		assert.Equal(t, tt.code, errorCode(t, w), tt.err.Error())
	}
}
