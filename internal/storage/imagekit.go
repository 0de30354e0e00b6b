// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/machinelog/internal/config"
)

// ImageKitStore talks to the ImageKit upload and media APIs.
type ImageKitStore struct {
	httpClient *http.Client
	privateKey string
	uploadURL  string
	apiURL     string
	folder     string
	limiter    *rate.Limiter
}

// imageKitFile is the subset of the ImageKit file representation we read.
type imageKitFile struct {
	FileID    string    `json:"fileId"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	Mime      string    `json:"mime"`
	FileType  string    `json:"fileType"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

type imageKitError struct {
	Message string `json:"message"`
	Help    string `json:"help"`
}

// NewImageKitStore creates a client. A non-positive RateLimit disables
// client-side throttling.
func NewImageKitStore(cfg *config.ImageKitConfig) (*ImageKitStore, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	folder := cfg.Folder
	if folder == "" {
		folder = "/machine-records"
	}

	return &ImageKitStore{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		privateKey: cfg.PrivateKey,
		uploadURL:  cfg.UploadURL,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		folder:     folder,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Upload posts the file as multipart form data into the configured folder.
func (s *ImageKitStore) Upload(ctx context.Context, name, contentType string, r io.Reader, _ int64) (*Object, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	fields := map[string]string{
		"fileName":          name,
		"folder":            s.folder,
		"useUniqueFileName": "true",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var file imageKitFile
	if err := s.do(req, &file); err != nil {
		return nil, err
	}

	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	obj := file.object()
	if obj.ContentType == "" {
		obj.ContentType = contentType
	}
	return &obj, nil
}

// List returns the files in the configured folder, newest first.
func (s *ImageKitStore) List(ctx context.Context) ([]Object, error) {
	q := url.Values{}
	q.Set("path", s.folder)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/files?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var files []imageKitFile
	if err := s.do(req, &files); err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(files))
	for _, f := range files {
		if f.Type == "folder" {
			continue
		}
		objects = append(objects, f.object())
	}
	sortNewestFirst(objects)
	return objects, nil
}

// Delete removes the file with the given ImageKit file id.
func (s *ImageKitStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.apiURL+"/files/"+url.PathEscape(key), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return s.do(req, nil)
}

// do sends req with basic auth and decodes a JSON body into out when non-nil.
func (s *ImageKitStore) do(req *http.Request, out any) error {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.SetBasicAuth(s.privateKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagekit request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("imagekit %s: %w", req.URL.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr imageKitError
		//nolint:errcheck // the status code is reported either way
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("imagekit returned status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("imagekit returned status %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode imagekit response: %w", err)
	}
	return nil
}

func (f imageKitFile) object() Object {
	contentType := f.Mime
	if contentType == "" && f.FileType == "non-image" && strings.HasSuffix(strings.ToLower(f.Name), ".pdf") {
		contentType = "application/pdf"
	}
	return Object{
		Key:         f.FileID,
		Name:        f.Name,
		URL:         f.URL,
		Size:        f.Size,
		ContentType: contentType,
		UploadedAt:  f.CreatedAt.UTC(),
	}
}
