// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package cache provides a thread-safe, bounded in-memory cache with TTL
expiration and least-recently-used eviction.

The API layer uses it for read-mostly listings that every client polls: the
tag cloud and the machine roster. Writes that change those listings clear
the cache, so the TTL only bounds staleness from writes made outside the
process (another replica, a manual SQL fix).

# Usage

	tags := cache.New[[]models.TagCount](cache.Options{
		Name:     "tags",
		Capacity: 16,
		TTL:      time.Minute,
	})

	if v, ok := tags.Get("all"); ok {
		return v
	}
	v, err := db.ListTags(ctx)
	if err == nil {
		tags.Set("all", v)
	}

Expired entries are removed lazily on Get and in bulk by Prune. Janitor
wraps Prune as a suture service so idle caches do not hold expired values
until the next read.

# Metrics

Hits and misses are counted per cache name in
machinelog_cache_requests_total{cache,result}.
*/
package cache
