// Package cache provides an in-memory TTL cache with per-key request
// coalescing. When multiple concurrent callers ask for the same key, only
// one invokes the fetch function; the rest wait and observe its result.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Default TTL values by data category.
const (
	TTLQuotes           = 10 * time.Second
	TTLIVAnalysis       = 30 * time.Second
	TTLSentiment        = 60 * time.Second
	TTLMarketIndicators = 15 * time.Second
	TTLFearGreed        = 120 * time.Second
	TTLOptions          = 30 * time.Second
)

// FetchFunc produces a value for a cache key. It must honor ctx cancellation.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value    any
	expireAt time.Time
}

// Stats is a point-in-time snapshot of cache occupancy.
type Stats struct {
	TotalEntries   int `json:"total_entries"`
	ActiveEntries  int `json:"active_entries"`
	ExpiredEntries int `json:"expired_entries"`
}

// Cache is a TTL cache with per-key coalescing. The structure lock guards
// the entry map and the lock table; per-key locks serialize fetches so at
// most one fetch per key runs at a time.
type Cache struct {
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	locks   map[string]chan struct{}
}

// New creates an empty cache.
func New(log zerolog.Logger) *Cache {
	return &Cache{
		log:     log.With().Str("component", "cache").Logger(),
		entries: make(map[string]entry),
		locks:   make(map[string]chan struct{}),
	}
}

// keyLock returns the coalescing lock channel for key, creating it if needed.
// Lock creation is serialized on the structure lock.
func (c *Cache) keyLock(key string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		c.locks[key] = lock
	}
	return lock
}

// lookup returns the cached value if present and fresh.
func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expireAt) {
		return nil, false
	}
	return e.value, true
}

// GetOrFetch returns the cached value for key, or invokes fetch and caches
// the result for ttl. Guarantees: at most one concurrent fetch per key;
// fetch errors propagate to the caller and never populate the cache;
// cancelled waiters observe ctx.Err(), not a cached value.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (any, error) {
	// Fast path: no per-key lock.
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	// Slow path: acquire the per-key lock, re-check, then fetch.
	lock := c.keyLock(key)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-lock }()

	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, expireAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	return value, nil
}

// Get returns a cached value without fetching. Expired entries behave as
// misses and are removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expireAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value directly with the given TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expireAt: time.Now().Add(ttl)}
}

// Invalidate removes a single key. Returns true if it existed.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// InvalidatePrefix removes all keys starting with prefix. Returns the count
// removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear removes all cached entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Size returns the number of entries, including expired ones not yet swept.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of total, active and expired entry counts.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	active := 0
	for _, e := range c.entries {
		if e.expireAt.After(now) {
			active++
		}
	}
	return Stats{
		TotalEntries:   len(c.entries),
		ActiveEntries:  active,
		ExpiredEntries: len(c.entries) - active,
	}
}

// Sweep removes expired entries and returns the count removed. Run
// periodically by the scheduler so idle keys do not accumulate.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expireAt) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		c.log.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}
	return removed
}
