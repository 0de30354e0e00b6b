// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$10$") {
		t.Errorf("hash = %q, want bcrypt cost 10", hash)
	}

	ok, err := CheckPassword(hash, "admin123")
	if err != nil || !ok {
		t.Errorf("CheckPassword(correct) = %v, %v", ok, err)
	}
	ok, err = CheckPassword(hash, "admin124")
	if err != nil || ok {
		t.Errorf("CheckPassword(wrong) = %v, %v", ok, err)
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword("12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("HashPassword(short) error = %v, want ErrPasswordTooShort", err)
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	if _, err := CheckPassword("not-a-hash", "whatever"); err == nil {
		t.Error("CheckPassword() expected error for malformed hash")
	}
}
