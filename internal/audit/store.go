// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/machinelog/internal/models"
)

// Store persists audit events. *database.DB implements it.
type Store interface {
	SaveAuditEvent(ctx context.Context, e *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error)
	DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MemoryStore implements Store in memory. Data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.AuditEvent
	maxLen int
}

// NewMemoryStore keeps at most maxLen events (default 10000).
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{maxLen: maxLen}
}

// SaveAuditEvent appends e, evicting the oldest tenth when full.
func (s *MemoryStore) SaveAuditEvent(_ context.Context, e *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		evict := max(s.maxLen/10, 1)
		s.events = append(s.events[:0:0], s.events[evict:]...)
	}
	s.events = append(s.events, *e)
	return nil
}

// ListAuditEvents returns matching events newest first.
func (s *MemoryStore) ListAuditEvents(_ context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	out := make([]models.AuditEvent, 0)
	skipped := 0
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if !f.Matches(&s.events[i]) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, s.events[i])
	}
	return out, nil
}

// DeleteAuditEventsBefore drops events older than cutoff.
func (s *MemoryStore) DeleteAuditEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
