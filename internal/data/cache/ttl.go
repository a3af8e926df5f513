package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-memory cache
const DefaultMaxEntries = 10_000

// TTLCache implements Cache in process memory with time-based expiration
// and least-recently-used eviction.
type TTLCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int64
	stats      Stats
	now        func() time.Time
}

type cacheEntry struct {
	value    []byte
	expires  time.Time // zero means no expiry
	accessed time.Time
}

// NewTTLCache creates a new TTL cache with specified maximum entries
func NewTTLCache(maxEntries int64) *TTLCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &TTLCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get retrieves a value from cache if not expired
func (c *TTLCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false, nil
	}
	if !e.expires.IsZero() && now.After(e.expires) {
		delete(c.entries, key)
		c.stats.Misses++
		return nil, false, nil
	}

	e.accessed = now
	c.stats.Hits++
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a value in cache with TTL; ttl <= 0 never expires
func (c *TTLCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && int64(len(c.entries)) >= c.maxEntries {
		c.removeExpired(now)
		if int64(len(c.entries)) >= c.maxEntries {
			c.evictLRU()
		}
	}

	e := &cacheEntry{value: append([]byte(nil), val...), accessed: now}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Stats returns cache performance statistics
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stats
	st.Entries = int64(len(c.entries))
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRatio = float64(st.Hits) / float64(total)
	}
	return st
}

// Clear removes all entries from cache
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.stats = Stats{}
}

// evictLRU removes the least recently used entry (caller must hold lock)
func (c *TTLCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.accessed.Before(oldest) {
			oldestKey, oldest = key, e.accessed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// removeExpired drops all expired entries (caller must hold lock)
func (c *TTLCache) removeExpired(now time.Time) {
	for key, e := range c.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(c.entries, key)
		}
	}
}
