// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package auth

import (
	"context"
	"time"

	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/metrics"
)

// SessionJanitor periodically removes expired sessions and publishes the live
// session count. It implements suture.Service.
type SessionJanitor struct {
	store    SessionStore
	interval time.Duration
}

// NewSessionJanitor creates a janitor running every interval (default 5m).
func NewSessionJanitor(store SessionStore, interval time.Duration) *SessionJanitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionJanitor{store: store, interval: interval}
}

// Serve runs until ctx is canceled.
func (j *SessionJanitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *SessionJanitor) sweep(ctx context.Context) {
	removed, err := j.store.CleanupExpired(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Session cleanup failed")
		return
	}
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Expired sessions removed")
	}

	if n, err := j.store.Count(ctx); err == nil {
		metrics.SessionsActive.Set(float64(n))
	}
}

// String implements fmt.Stringer for suture logging.
func (j *SessionJanitor) String() string {
	return "session-janitor"
}
