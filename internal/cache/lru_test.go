// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, capacity int, ttl time.Duration) (*Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := New[string](Options{Name: "test", Capacity: capacity, TTL: ttl})
	c.now = clock.Now
	return c, clock
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)

	if _, ok := c.Get("MCH001"); ok {
		t.Fatal("Get on empty cache returned a value")
	}
	c.Set("MCH001", "ACTIVE")
	got, ok := c.Get("MCH001")
	if !ok || got != "ACTIVE" {
		t.Fatalf("Get() = %q, %v; want ACTIVE, true", got, ok)
	}

	c.Set("MCH001", "MAINTENANCE")
	if got, _ := c.Get("MCH001"); got != "MAINTENANCE" {
		t.Errorf("overwrite: Get() = %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 2 hits 1 miss", stats)
	}
	if rate := stats.HitRate(); rate < 66 || rate > 67 {
		t.Errorf("HitRate() = %v", rate)
	}
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	c.Set("tags", "spindle")
	c.SetWithTTL("long", "kept", time.Hour)

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("tags"); !ok {
		t.Fatal("entry expired early")
	}

	clock.Advance(2 * time.Second)
	if _, ok := c.Get("tags"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Len() != 1 {
		t.Errorf("expired entry not removed on Get, Len() = %d", c.Len())
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("entry with longer TTL expired")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 3, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Get("a") // b is now least recently used
	c.Set("d", "4")

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %q evicted", k)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestCache_DeleteClearPrune(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	if !c.Delete("a") {
		t.Error("Delete() of present key = false")
	}
	if c.Delete("a") {
		t.Error("Delete() of absent key = true")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() after Clear = %d", c.Len())
	}
	c.Set("after-clear", "ok")
	if _, ok := c.Get("after-clear"); !ok {
		t.Fatal("cache unusable after Clear")
	}

	c.SetWithTTL("short", "x", time.Second)
	c.SetWithTTL("shorter", "y", time.Millisecond)
	clock.Advance(2 * time.Second)
	if n := c.Prune(); n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() after Prune = %d, want 1", c.Len())
	}
}

func TestCache_Defaults(t *testing.T) {
	c := New[int](Options{})
	if c.capacity != defaultCapacity || c.ttl != defaultTTL || c.Name() != "default" {
		t.Errorf("defaults = %d, %v, %q", c.capacity, c.ttl, c.Name())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int](Options{Name: "concurrent", Capacity: 50, TTL: time.Minute})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Set(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.Prune()
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
