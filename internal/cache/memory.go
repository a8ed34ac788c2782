package cache

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 1000
)

type memoryEntry struct {
	output    string
	createdAt time.Time
}

// MemoryCache keeps outputs in process memory. An entry is valid while
// now-createdAt < ttl. Expired entries are only removed by the sweep that
// runs when an insert pushes the size past maxEntries.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type MemoryOption func(*MemoryCache)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// NewMemoryCache creates an in-memory cache.
// Non-positive ttl or maxEntries fall back to the defaults.
func NewMemoryCache(ttl time.Duration, maxEntries int, opts ...MemoryOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	c := &MemoryCache{
		items:      make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the output for key if it is still fresh. Stale entries read as
// misses but stay in the map.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.createdAt) >= c.ttl {
		return "", false, nil
	}
	return entry.output, true, nil
}

// Set stores output under key stamped with the current time.
func (c *MemoryCache) Set(_ context.Context, key string, output string) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memoryEntry{output: output, createdAt: now}

	if len(c.items) > c.maxEntries {
		for k, v := range c.items {
			if now.Sub(v.createdAt) >= c.ttl {
				delete(c.items, k)
			}
		}
	}
	return nil
}

// Len returns the number of items currently in the cache, stale ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all items from cache. Useful for tests or manual resets.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]memoryEntry)
	c.mu.Unlock()
}
