// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/models"
)

const (
	defaultBufferSize = 1000
	writeTimeout      = 5 * time.Second
)

// Logger writes audit log lines and persists the matching events
// asynchronously. A Logger with a nil Store only logs.
type Logger struct {
	log   *logging.AuditLogger
	store Store

	mu      sync.RWMutex
	closed  bool
	events  chan *models.AuditEvent
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewLogger starts the writer goroutine when store is non-nil. Call Close
// to flush buffered events.
func NewLogger(store Store, bufferSize int) *Logger {
	return newLogger(logging.NewAuditLogger(), store, bufferSize)
}

func newLogger(log *logging.AuditLogger, store Store, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	l := &Logger{log: log, store: store}
	if store != nil {
		l.events = make(chan *models.AuditEvent, bufferSize)
		l.wg.Add(1)
		go l.writer()
	}
	return l
}

func (l *Logger) writer() {
	defer l.wg.Done()
	for e := range l.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := l.store.SaveAuditEvent(ctx, e); err != nil {
			logging.Error().Err(err).Str("type", e.Type).Msg("Failed to save audit event")
		}
		cancel()
	}
}

// record enqueues e without blocking.
func (l *Logger) record(ctx context.Context, e *models.AuditEvent) {
	if l.store == nil {
		return
	}
	e.ID = uuid.NewString()
	e.Timestamp = time.Now().UTC()
	e.RequestID = logging.RequestIDFromContext(ctx)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.events <- e:
	default:
		l.dropped.Add(1)
		logging.Warn().Str("type", e.Type).Msg("Audit buffer full, dropping event")
	}
}

// Close stops accepting events and waits until the buffer is written.
func (l *Logger) Close() error {
	l.mu.Lock()
	if !l.closed && l.events != nil {
		close(l.events)
	}
	l.closed = true
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

// Dropped returns how many events were not persisted.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Query lists persisted events. A log-only Logger returns an empty list.
func (l *Logger) Query(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	if l.store == nil {
		return []models.AuditEvent{}, nil
	}
	return l.store.ListAuditEvents(ctx, f)
}

// LoginSucceeded records a successful password login.
func (l *Logger) LoginSucceeded(ctx context.Context, username, role, ip, sessionID string) {
	l.log.LoginSucceeded(ctx, username, role, ip, sessionID)
	l.record(ctx, &models.AuditEvent{
		Type:    "auth.login",
		Outcome: models.OutcomeSuccess,
		Actor:   logging.SanitizeUsername(username),
		IP:      ip,
		Detail:  role,
	})
}

// LoginFailed records a rejected login. reason must not contain the password.
func (l *Logger) LoginFailed(ctx context.Context, username, ip, reason string) {
	l.log.LoginFailed(ctx, username, ip, reason)
	l.record(ctx, &models.AuditEvent{
		Type:    "auth.login",
		Outcome: models.OutcomeFailure,
		Actor:   logging.SanitizeUsername(username),
		IP:      ip,
		Detail:  reason,
	})
}

// Logout records a session being destroyed.
func (l *Logger) Logout(ctx context.Context, username, sessionID string) {
	l.log.Logout(ctx, username, sessionID)
	l.record(ctx, &models.AuditEvent{
		Type:    "auth.logout",
		Outcome: models.OutcomeSuccess,
		Actor:   logging.SanitizeUsername(username),
	})
}

// UserRegistered records a new account created by the admin "by". An empty
// by is a self-registration, and the new user is recorded as the actor.
func (l *Logger) UserRegistered(ctx context.Context, username, role, by string) {
	if by == "" {
		by = username
	}
	l.log.UserRegistered(ctx, username, role, by)
	l.record(ctx, &models.AuditEvent{
		Type:       "user.registered",
		Outcome:    models.OutcomeSuccess,
		Actor:      logging.SanitizeUsername(by),
		TargetType: "user",
		TargetID:   logging.SanitizeUsername(username),
		Detail:     role,
	})
}

// Change records a create/update/delete of a domain entity.
func (l *Logger) Change(ctx context.Context, action, entity, id, by string) {
	l.log.Change(ctx, action, entity, id, by)
	l.record(ctx, &models.AuditEvent{
		Type:       entity + "." + action,
		Outcome:    models.OutcomeSuccess,
		Actor:      logging.SanitizeUsername(by),
		TargetType: entity,
		TargetID:   id,
	})
}
