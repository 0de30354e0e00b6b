// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/machinelog/internal/logging"
)

// RetentionService prunes old audit events. It implements suture.Service.
type RetentionService struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewRetentionService keeps retentionDays of history, pruning every interval
// (default 24h).
func NewRetentionService(store Store, retentionDays int, interval time.Duration) *RetentionService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionService{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		now:       time.Now,
	}
}

// Serve prunes once immediately, then on every tick until ctx is canceled.
func (s *RetentionService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.prune(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *RetentionService) prune(ctx context.Context) {
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.store.DeleteAuditEventsBefore(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit retention cleanup failed")
		return
	}
	if n > 0 {
		logging.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("Pruned old audit events")
	}
}

func (s *RetentionService) String() string {
	return "audit-retention"
}
