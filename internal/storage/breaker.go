// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package storage

import (
	"context"
	"errors"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/metrics"
)

// breaker guards one backend. The gobreaker instance keeps real time for
// its interval and timeout; tests drive it through consecutive failures.
type breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

func newBreaker(name string, cfg *config.BreakerConfig) *breaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().
					Str("backend", name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		// Missing objects, rejected per-user credentials and caller mistakes
		// say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrUnauthorized) ||
				errors.Is(err, ErrInvalidKey) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("backend", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &breaker{cb: cb, name: name}
}

// State returns the current breaker state name.
func (b *breaker) State() string {
	return stateToString(b.cb.State())
}

// call runs fn through the breaker, mapping rejections to ErrUnavailable.
func call[T any](b *breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return zero, ErrUnavailable
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()

	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// guardedStore wraps a Store with a breaker and blob metrics.
type guardedStore struct {
	store   Store
	breaker *breaker
}

func (g *guardedStore) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (*Object, error) {
	start := time.Now()
	obj, err := call(g.breaker, func() (*Object, error) {
		return g.store.Upload(ctx, name, contentType, r, size)
	})
	metrics.RecordBlobOperation(g.breaker.name, "upload", time.Since(start), err)
	return obj, err
}

func (g *guardedStore) List(ctx context.Context) ([]Object, error) {
	start := time.Now()
	objs, err := call(g.breaker, func() ([]Object, error) {
		return g.store.List(ctx)
	})
	metrics.RecordBlobOperation(g.breaker.name, "list", time.Since(start), err)
	return objs, err
}

func (g *guardedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	_, err := call(g.breaker, func() (struct{}, error) {
		return struct{}{}, g.store.Delete(ctx, key)
	})
	metrics.RecordBlobOperation(g.breaker.name, "delete", time.Since(start), err)
	return err
}
