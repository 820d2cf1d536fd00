package share

import (
	"context"
	"log"
	"sync"
	"time"
)

// TTLCache is an in-memory map with per-entry expiry. Expiry is
// enforced twice: a periodic sweep purges dead entries, and every read
// checks the deadline so an expired-but-unswept entry is never served.
// Losing the cache on restart is acceptable; entries are a convenience,
// not durable state.
type TTLCache[V any] struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
}

type ttlEntry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// NewTTLCache builds an empty cache. clock is injectable for tests; nil
// means time.Now.
func NewTTLCache[V any](clock func() time.Time) *TTLCache[V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[V]{now: clock, entries: make(map[string]ttlEntry[V])}
}

func (c *TTLCache[V]) Set(key string, v V, expiresAt time.Time) {
	c.mu.Lock()
	c.entries[key] = ttlEntry[V]{value: v, createdAt: c.now(), expiresAt: expiresAt}
	c.mu.Unlock()
}

// Get returns the value and whether the key exists. An entry is expired
// at or after its deadline; expired entries report found=true,
// expired=true and are deleted eagerly.
func (c *TTLCache[V]) Get(key string) (v V, found, expired bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return v, false, false
	}

	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return e.value, true, true
	}

	return e.value, true, false
}

func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge removes every expired entry and reports how many were removed.
func (c *TTLCache[V]) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Sweep runs Purge every interval until ctx is cancelled. Run it in its
// own goroutine, tied to the process lifecycle.
func (c *TTLCache[V]) Sweep(ctx context.Context, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Purge(); n > 0 && logger != nil {
				logger.Printf("share token sweep removed %d expired entries", n)
			}
		}
	}
}
