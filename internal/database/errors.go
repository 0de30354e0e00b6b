// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"database/sql"
	"errors"
	"io"
)

// Sentinel errors. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRecordNotFound  = errors.New("record not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrMachineNotFound = errors.New("machine not found")
	ErrFindingNotFound = errors.New("finding not found")
)

// isNotFound reports whether err is an expected lookup miss rather than a
// query failure.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrMachineNotFound) ||
		errors.Is(err, ErrFindingNotFound)
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
