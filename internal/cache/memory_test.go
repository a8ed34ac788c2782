package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryCache_TTL(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(time.Minute, 10, WithClock(clock.Now))

	ctx := context.Background()
	key := BuildFingerprint("polish", "neutral", "helo").String()

	if err := c.Set(ctx, key, "hello"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit immediately after Set")
	}
	if got != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}

	clock.Advance(59 * time.Second)
	if _, hit, _ = c.Get(ctx, key); !hit {
		t.Fatalf("expected hit just before TTL")
	}

	// now - createdAt == ttl is already stale
	clock.Advance(time.Second)
	if _, hit, _ = c.Get(ctx, key); hit {
		t.Fatalf("expected miss after TTL expiry")
	}

	if c.Len() != 1 {
		t.Fatalf("stale entry should not be deleted on read, len=%d", c.Len())
	}
}

func TestMemoryCache_SweepOnlyExpiredAboveMax(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(time.Minute, 3, WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "old-1", "a")
	_ = c.Set(ctx, "old-2", "b")
	clock.Advance(2 * time.Minute)
	_ = c.Set(ctx, "fresh-1", "c")

	if c.Len() != 3 {
		t.Fatalf("no sweep expected at the ceiling, len=%d", c.Len())
	}

	_ = c.Set(ctx, "fresh-2", "d")
	if c.Len() != 2 {
		t.Fatalf("expected expired entries swept, len=%d", c.Len())
	}
	for _, k := range []string{"fresh-1", "fresh-2"} {
		if _, hit, _ := c.Get(ctx, k); !hit {
			t.Fatalf("fresh entry %q was evicted", k)
		}
	}
}

func TestMemoryCache_SweepKeepsFreshEntriesOverCeiling(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(time.Minute, 2, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), "v")
	}
	if c.Len() != 5 {
		t.Fatalf("sweep must not evict unexpired entries, len=%d", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, len=%d", c.Len())
	}
}

func TestMemoryCache_OverwriteRefreshesTimestamp(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(time.Minute, 10, WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", "first")
	clock.Advance(45 * time.Second)
	_ = c.Set(ctx, "k", "second")
	clock.Advance(45 * time.Second)

	got, hit, _ := c.Get(ctx, "k")
	if !hit || got != "second" {
		t.Fatalf("expected refreshed entry 'second', got %q hit=%v", got, hit)
	}
}
