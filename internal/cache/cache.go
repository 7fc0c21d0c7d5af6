// Package cache memoizes the raw datasets fetched from the upstream ledger.
// There is no TTL: invalidation is event-driven, triggered by the writes that
// make a dataset stale (sale submitted, register opened/closed) and by the
// periodic dataset refresh tick.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads a dataset from its source when the cache misses.
type FetchFunc func(ctx context.Context) (any, error)

// Cache is a keyed memoization layer. Entries are replaced atomically: readers
// see either the previous complete value or the new one, never a partial
// write. Concurrent misses on the same key coalesce into a single fetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
	group   singleflight.Group
}

func New() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Get returns the cached value for key, fetching and storing it on a miss.
// A fetch error is returned to every caller that joined the flight; nothing
// is stored in that case, so the next Get retries.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	c.mu.RLock()
	if v, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight may have filled the entry while we queued.
		c.mu.RLock()
		if v, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return v, nil
		}
		c.mu.RUnlock()

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate clears the given entries, or every entry when called with no
// arguments.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.entries = make(map[string]any)
		return
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// Len returns the number of cached entries (used by the health endpoint).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
