// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/machinelog/internal/logging"
)

// Pruner is satisfied by every Cache instantiation.
type Pruner interface {
	Name() string
	Prune() int
}

// Janitor prunes expired entries from a set of caches on an interval. It
// implements suture.Service.
type Janitor struct {
	caches   []Pruner
	interval time.Duration
}

// NewJanitor creates a janitor running every interval (default 1m).
func NewJanitor(interval time.Duration, caches ...Pruner) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{caches: caches, interval: interval}
}

// Serve runs until ctx is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	for _, c := range j.caches {
		if n := c.Prune(); n > 0 {
			logging.Debug().Str("cache", c.Name()).Int("removed", n).Msg("Expired cache entries pruned")
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (j *Janitor) String() string {
	return "cache-janitor"
}
