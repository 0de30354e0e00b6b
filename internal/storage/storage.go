// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors shared by every backend.
var (
	ErrNotFound      = errors.New("object not found")
	ErrUnavailable   = errors.New("storage backend unavailable")
	ErrNotConfigured = errors.New("storage backend not configured")
	ErrInvalidKey    = errors.New("object key is required")
	// ErrUnauthorized means the caller's credentials were rejected, not
	// that the backend is unhealthy.
	ErrUnauthorized = errors.New("storage credentials rejected")
)

// Object describes one stored file.
type Object struct {
	Key         string    `json:"fileName"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	Category    string    `json:"category,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Store is implemented by every blob backend.
type Store interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (*Object, error)
	List(ctx context.Context) ([]Object, error)
	Delete(ctx context.Context, key string) error
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeName replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// objectKey prefixes the sanitized name with the upload time in unix millis.
func objectKey(name string, at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "-" + SanitizeName(name)
}

// displayName strips the timestamp prefix from an object key.
func displayName(key string) string {
	if i := strings.Index(key, "-"); i >= 0 {
		return key[i+1:]
	}
	return key
}
