// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/models"
	"github.com/tomtom215/machinelog/internal/storage"
)

const (
	// maxUploadSize bounds multipart uploads.
	maxUploadSize = 32 << 20

	// GoogleTokenCookie holds the Drive access token set by the OAuth2 callback.
	GoogleTokenCookie = "google_access_token"

	googleStateCookie = "google_oauth_state"
	googleTokenMaxAge = 7 * 24 * time.Hour
)

// UploadMinIO stores a PDF in the MinIO bucket.
//
// @Summary Upload a PDF to MinIO
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Success 201 {object} models.APIResponse{data=storage.Object}
// @Failure 400 {object} models.APIResponse "No file provided"
// @Failure 503 {object} models.APIResponse "Storage not configured or unavailable"
// @Security BearerAuth
// @Router /files/minio [post]
func (h *Handler) UploadMinIO(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, storage.BackendMinIO, func(context.Context) (storage.Store, error) {
		return h.storage.MinIO()
	})
}

// ListMinIO lists the PDFs in the bucket with 24h download links.
//
// @Summary List PDFs in MinIO
// @Tags Files
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]storage.Object}
// @Security BearerAuth
// @Router /files/minio [get]
func (h *Handler) ListMinIO(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, storage.BackendMinIO, func(context.Context) (storage.Store, error) {
		return h.storage.MinIO()
	})
}

// DeleteMinIO removes an object by its stored key.
//
// @Summary Delete a PDF from MinIO
// @Tags Files
// @Accept json
// @Produce json
// @Param request body models.DeleteFileRequest true "Stored object key"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /files/minio [delete]
func (h *Handler) DeleteMinIO(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	var req models.DeleteFileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if h.storage == nil {
		h.storageError(w, r, storage.BackendMinIO, storage.ErrNotConfigured)
		return
	}

	store, err := h.storage.MinIO()
	if err == nil {
		err = store.Delete(r.Context(), req.FileName)
	}
	if err != nil {
		h.storageError(w, r, storage.BackendMinIO, err)
		return
	}

	h.emit(r.Context(), events.Change{Action: "deleted", Entity: "file", ID: req.FileName, By: subject.Username}, nil)
	respondSuccess(w, r, http.StatusOK, map[string]string{"fileName": req.FileName})
}

// UploadImageKit stores an image on ImageKit and returns its hosted URL.
//
// @Summary Upload an image to ImageKit
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 201 {object} models.APIResponse{data=storage.Object}
// @Security BearerAuth
// @Router /files/imagekit [post]
func (h *Handler) UploadImageKit(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, storage.BackendImageKit, func(context.Context) (storage.Store, error) {
		return h.storage.ImageKit()
	})
}

// ListDrive lists the caller's Drive PDFs using the token cookie.
//
// @Summary List PDFs in Google Drive
// @Tags Files
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]storage.Object}
// @Failure 401 {object} models.APIResponse "Google account not connected"
// @Security BearerAuth
// @Router /files/drive [get]
func (h *Handler) ListDrive(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.driveToken(w, r); ok {
		h.list(w, r, storage.BackendDrive, func(ctx context.Context) (storage.Store, error) {
			return h.storage.Drive(ctx, token)
		})
	}
}

// UploadDrive uploads a file to the caller's Drive.
//
// @Summary Upload a file to Google Drive
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Success 201 {object} models.APIResponse{data=storage.Object}
// @Failure 401 {object} models.APIResponse "Google account not connected"
// @Security BearerAuth
// @Router /files/drive [post]
func (h *Handler) UploadDrive(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.driveToken(w, r); ok {
		h.upload(w, r, storage.BackendDrive, func(ctx context.Context) (storage.Store, error) {
			return h.storage.Drive(ctx, token)
		})
	}
}

// OAuthAuthorize redirects to Google's consent page.
//
// @Summary Connect a Google account
// @Tags Files
// @Success 302
// @Failure 503 {object} models.APIResponse "Google OAuth not configured"
// @Router /oauth2/authorize [get]
func (h *Handler) OAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.storageError(w, r, storage.BackendDrive, storage.ErrNotConfigured)
		return
	}
	oauth, err := h.storage.OAuth()
	if err != nil {
		h.storageError(w, r, storage.BackendDrive, err)
		return
	}

	state, err := randomState()
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to start authorization", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     googleStateCookie,
		Value:    state,
		Path:     "/api/v1/oauth2",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, oauth.AuthCodeURL(state), http.StatusFound)
}

// OAuthCallback checks the state against the cookie set by OAuthAuthorize,
// exchanges the authorization code, stores the access token in an HttpOnly
// cookie for a week and redirects to /dashboard.
//
// @Summary Google OAuth2 callback
// @Tags Files
// @Param code query string false "Authorization code"
// @Param error query string false "Error reported by Google"
// @Success 302
// @Failure 400 {object} models.APIResponse
// @Failure 502 {object} models.APIResponse "Code exchange failed"
// @Router /oauth2/callback [get]
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		respondError(w, http.StatusBadRequest, "OAUTH_ERROR", "Google OAuth error: "+e, nil)
		return
	}
	code := q.Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "OAUTH_ERROR", storage.ErrMissingCode.Error(), nil)
		return
	}

	if h.storage == nil {
		h.storageError(w, r, storage.BackendDrive, storage.ErrNotConfigured)
		return
	}
	oauth, err := h.storage.OAuth()
	if err != nil {
		h.storageError(w, r, storage.BackendDrive, err)
		return
	}

	// Only flows started by OAuthAuthorize in this browser are accepted.
	c, err := r.Cookie(googleStateCookie)
	if err != nil || c.Value == "" {
		respondError(w, http.StatusBadRequest, "OAUTH_ERROR", "missing authorization state; start again at /api/v1/oauth2/authorize", nil)
		return
	}
	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(c.Value)) != 1 {
		respondError(w, http.StatusBadRequest, "OAUTH_ERROR", "state mismatch", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: googleStateCookie, Path: "/api/v1/oauth2", MaxAge: -1})

	tok, err := oauth.Exchange(r.Context(), code)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Google code exchange failed")
		respondError(w, http.StatusBadGateway, "OAUTH_ERROR", "failed to exchange code for access token", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     GoogleTokenCookie,
		Value:    tok.AccessToken,
		Path:     "/",
		MaxAge:   int(googleTokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handler) driveToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	c, err := r.Cookie(GoogleTokenCookie)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeDriveNotConnected,
			"connect a Google account via /api/v1/oauth2/authorize first", nil)
		return "", false
	}
	return c.Value, true
}

type storeOpener func(ctx context.Context) (storage.Store, error)

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, backend string, open storeOpener) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	if h.storage == nil {
		h.storageError(w, r, backend, storage.ErrNotConfigured)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "file too large", nil)
			return
		}
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "no file provided", nil)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	store, err := open(r.Context())
	if err != nil {
		h.storageError(w, r, backend, err)
		return
	}
	obj, err := store.Upload(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		h.storageError(w, r, backend, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("backend", backend).
		Str("key", obj.Key).
		Int64("size", header.Size).
		Msg("File uploaded")
	h.emit(r.Context(), events.Change{Action: "uploaded", Entity: "file", ID: obj.Key, By: subject.Username}, nil)
	respondSuccess(w, r, http.StatusCreated, obj)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, backend string, open storeOpener) {
	if h.storage == nil {
		h.storageError(w, r, backend, storage.ErrNotConfigured)
		return
	}
	store, err := open(r.Context())
	if err != nil {
		h.storageError(w, r, backend, err)
		return
	}
	objects, err := store.List(r.Context())
	if err != nil {
		h.storageError(w, r, backend, err)
		return
	}
	if objects == nil {
		objects = []storage.Object{}
	}
	respondSuccess(w, r, http.StatusOK, objects)
}

// storageError maps storage failures. Nothing is retried.
func (h *Handler) storageError(w http.ResponseWriter, r *http.Request, backend string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "STORAGE_NOT_CONFIGURED", backend+" storage is not configured", nil)
	case errors.Is(err, storage.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageOffline, backend+" storage is temporarily unavailable", nil)
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "FILE_NOT_FOUND", "file not found", nil)
	case errors.Is(err, storage.ErrInvalidKey):
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, storage.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, ErrCodeDriveNotConnected, backend+" rejected the stored credentials; reconnect", nil)
	default:
		logging.CtxErr(r.Context(), err).Str("backend", backend).Msg("Storage operation failed")
		respondError(w, http.StatusInternalServerError, ErrCodeStorage, "storage operation failed", nil)
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
