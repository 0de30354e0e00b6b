// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	driveFileFields  = "id, name, mimeType, size, createdTime, description"
	driveListFields  = googleapi.Field("files(" + driveFileFields + ")")
	drivePageSize    = 100
	driveDefaultCat  = "uncategorized"
	driveViewURLBase = "https://drive.google.com/file/d/"
)

// DriveStore lists and uploads PDFs in the caller's Google Drive.
type DriveStore struct {
	service *drive.Service
}

// NewDriveStore builds a Drive client acting with accessToken. endpoint
// overrides the API base URL when non-empty.
func NewDriveStore(ctx context.Context, accessToken, endpoint string) (*DriveStore, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrNotConfigured
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveStore{service: service}, nil
}

// List returns up to one page of PDFs, newest first.
func (s *DriveStore) List(ctx context.Context) ([]Object, error) {
	resp, err := s.service.Files.List().
		Q("mimeType='application/pdf'").
		OrderBy("createdTime desc").
		PageSize(drivePageSize).
		Fields(driveListFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, driveError("list files", err)
	}

	objects := make([]Object, 0, len(resp.Files))
	for _, f := range resp.Files {
		objects = append(objects, driveObject(f))
	}
	return objects, nil
}

// Upload creates a new Drive file with r as its content.
func (s *DriveStore) Upload(ctx context.Context, name, contentType string, r io.Reader, _ int64) (*Object, error) {
	if contentType == "" {
		contentType = "application/pdf"
	}
	f, err := s.service.Files.Create(&drive.File{Name: name, MimeType: contentType}).
		Media(r, googleapi.ContentType(contentType)).
		Fields(driveFileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, driveError("upload file", err)
	}
	obj := driveObject(f)
	return &obj, nil
}

// Delete removes the Drive file with id key.
func (s *DriveStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if err := s.service.Files.Delete(key).Context(ctx).Do(); err != nil {
		return driveError("delete file", err)
	}
	return nil
}

func driveObject(f *drive.File) Object {
	createdAt, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		createdAt = time.Now()
	}
	category := f.Description
	if category == "" {
		category = driveDefaultCat
	}
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	return Object{
		Key:         f.Id,
		Name:        f.Name,
		URL:         driveViewURLBase + f.Id + "/view",
		Size:        f.Size,
		ContentType: mimeType,
		Category:    category,
		UploadedAt:  createdAt.UTC(),
	}
}

func driveError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("drive %s: %w", op, ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("drive %s: %w", op, ErrUnauthorized)
		}
	}
	return fmt.Errorf("drive %s: %w", op, err)
}
