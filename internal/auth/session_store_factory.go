// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package auth

import (
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/logging"
)

// SessionStoreType defines the type of session storage backend.
type SessionStoreType string

const (
	// SessionStoreMemory uses in-memory storage (not persistent).
	SessionStoreMemory SessionStoreType = "memory"

	// SessionStoreBadger uses BadgerDB for persistent session storage.
	SessionStoreBadger SessionStoreType = "badger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSessionStore builds the configured store. The returned closer releases
// the Badger database and must be called on shutdown.
func NewSessionStore(cfg *config.SecurityConfig) (SessionStore, io.Closer, error) {
	switch SessionStoreType(cfg.SessionStore) {
	case SessionStoreBadger:
		db, err := OpenBadger(cfg.SessionStorePath)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", cfg.SessionStorePath).Msg("Using BadgerDB session store")
		return NewBadgerSessionStore(db), db, nil

	case SessionStoreMemory, "":
		logging.Warn().Msg("Using in-memory session store; sessions are lost on restart")
		return NewMemorySessionStore(), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

// OpenBadger opens a BadgerDB at path. An empty path opens an in-memory
// database.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for sessions: %w", err)
	}
	return db, nil
}
