// Package cache is a process-local key/value store with per-entry expiry.
//
// Expiry is checked on read; nothing runs in the background and there is no
// capacity bound. An entry evicted on read is retained as a stale value that
// Stale can still serve until the key is set or cleared again.
package cache

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL applies when no other TTL is configured.
const DefaultTTL = 7 * time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats is a point-in-time view of the live entries.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithTTL sets the TTL used by Set.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClone installs the function used to copy values on Set and on every read,
// so no caller can mutate a stored value in place.
func WithClone[V any](clone func(V) V) Option[V] {
	return func(c *Cache[V]) { c.clone = clone }
}

// WithClock replaces time.Now.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	stale   map[string]V
	ttl     time.Duration
	clone   func(V) V
	now     func() time.Time
}

// New creates an empty cache.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		stale:   make(map[string]V),
		ttl:     DefaultTTL,
		clone:   func(v V) V { return v },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and not expired. An expired entry is
// evicted and kept as stale.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.stale[key] = e.value
		return zero, false
	}
	return c.clone(e.value), true
}

// Set stores value under key with the cache's TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl. A non-positive ttl uses the cache's TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	v := c.clone(value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: v, expiresAt: c.now().Add(ttl)}
	delete(c.stale, key)
}

// Stale returns the last value stored under key, expired or not. It never evicts.
func (c *Cache[V]) Stale(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return c.clone(e.value), true
	}
	if v, ok := c.stale[key]; ok {
		return c.clone(v), true
	}
	var zero V
	return zero, false
}

// Clear removes key, including any stale value.
func (c *Cache[V]) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.stale, key)
}

// ClearAll empties the cache.
func (c *Cache[V]) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.stale = make(map[string]V)
}

// Stats reports the entries currently held. Expired entries that have not been
// read yet are still counted.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}
}
