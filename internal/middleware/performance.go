// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/machinelog/internal/logging"
)

// RequestSample is one observed request.
type RequestSample struct {
	Route      string    `json:"route"`
	Method     string    `json:"method"`
	DurationMS int64     `json:"durationMs"`
	StatusCode int       `json:"statusCode"`
	Timestamp  time.Time `json:"timestamp"`
}

// EndpointStats aggregates the samples of one method+route.
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"requestCount"`
	ErrorCount   int64   `json:"errorCount"`
	AvgDuration  float64 `json:"avgDurationMs"`
	P50Duration  int64   `json:"p50DurationMs"`
	P95Duration  int64   `json:"p95DurationMs"`
	P99Duration  int64   `json:"p99DurationMs"`
	MaxDuration  int64   `json:"maxDurationMs"`
}

// PerformanceMonitor keeps the last N request samples in a ring buffer and
// logs requests slower than the threshold.
type PerformanceMonitor struct {
	mu        sync.RWMutex
	samples   []RequestSample
	next      int
	full      bool
	threshold time.Duration
	now       func() time.Time
}

// NewPerformanceMonitor creates a monitor holding up to size samples.
func NewPerformanceMonitor(size int, slowThreshold time.Duration) *PerformanceMonitor {
	if size <= 0 {
		size = 1000
	}
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return &PerformanceMonitor{
		samples:   make([]RequestSample, size),
		threshold: slowThreshold,
		now:       time.Now,
	}
}

// Record adds a sample, overwriting the oldest when full.
func (pm *PerformanceMonitor) Record(s RequestSample) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.samples[pm.next] = s
	pm.next = (pm.next + 1) % len(pm.samples)
	if pm.next == 0 {
		pm.full = true
	}
}

// snapshot returns the held samples, oldest first. Caller holds mu.
func (pm *PerformanceMonitor) snapshot() []RequestSample {
	if !pm.full {
		out := make([]RequestSample, pm.next)
		copy(out, pm.samples[:pm.next])
		return out
	}
	out := make([]RequestSample, 0, len(pm.samples))
	out = append(out, pm.samples[pm.next:]...)
	return append(out, pm.samples[:pm.next]...)
}

// Stats aggregates the held samples per endpoint, busiest first.
func (pm *PerformanceMonitor) Stats() []EndpointStats {
	pm.mu.RLock()
	samples := pm.snapshot()
	pm.mu.RUnlock()

	type agg struct {
		durations []int64
		errors    int64
	}
	byEndpoint := make(map[string]*agg)
	for _, s := range samples {
		key := s.Method + " " + s.Route
		a := byEndpoint[key]
		if a == nil {
			a = &agg{}
			byEndpoint[key] = a
		}
		a.durations = append(a.durations, s.DurationMS)
		if s.StatusCode >= 500 {
			a.errors++
		}
	}

	stats := make([]EndpointStats, 0, len(byEndpoint))
	for endpoint, a := range byEndpoint {
		sort.Slice(a.durations, func(i, j int) bool { return a.durations[i] < a.durations[j] })
		var sum int64
		for _, d := range a.durations {
			sum += d
		}
		n := len(a.durations)
		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(n),
			ErrorCount:   a.errors,
			AvgDuration:  float64(sum) / float64(n),
			P50Duration:  percentile(a.durations, 0.50),
			P95Duration:  percentile(a.durations, 0.95),
			P99Duration:  percentile(a.durations, 0.99),
			MaxDuration:  a.durations[n-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

// Recent returns up to n of the newest samples, newest last.
func (pm *PerformanceMonitor) Recent(n int) []RequestSample {
	pm.mu.RLock()
	samples := pm.snapshot()
	pm.mu.RUnlock()

	if n <= 0 {
		return []RequestSample{}
	}
	if n < len(samples) {
		samples = samples[len(samples)-n:]
	}
	return samples
}

// Middleware samples every request passing through it.
func (pm *PerformanceMonitor) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := pm.now()
		rec := newStatusRecorder(w)
		next(rec, r)
		elapsed := pm.now().Sub(start)

		route := routePattern(r)
		pm.Record(RequestSample{
			Route:      route,
			Method:     r.Method,
			DurationMS: elapsed.Milliseconds(),
			StatusCode: rec.statusCode,
			Timestamp:  start.UTC(),
		})

		if elapsed > pm.threshold {
			logging.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("route", route).
				Int("status", rec.statusCode).
				Dur("duration", elapsed).
				Msg("Slow request")
		}
	}
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
