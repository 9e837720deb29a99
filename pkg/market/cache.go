package market

import (
	"sort"
	"sync"
	"time"
)

// CacheEntry is a payload with the time it was stored.
type CacheEntry[T any] struct {
	Payload  T
	StoredAt time.Time
}

// CacheStats summarises the response cache.
type CacheStats struct {
	Size        int       `json:"size"`
	Keys        []string  `json:"keys"`
	OldestEntry time.Time `json:"oldestEntry"` // zero when the cache is empty
}

// ResponseCache is a process-local key -> (payload, timestamp) store.
// Entries are never evicted; callers decide what counts as fresh.
type ResponseCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry[T]
	now     func() time.Time
}

// NewResponseCache constructs an empty cache. A nil clock defaults to time.Now.
func NewResponseCache[T any](now func() time.Time) *ResponseCache[T] {
	if now == nil {
		now = time.Now
	}
	return &ResponseCache[T]{entries: make(map[string]CacheEntry[T]), now: now}
}

// Get returns the payload stored under key and its age.
func (c *ResponseCache[T]) Get(key string) (T, time.Duration, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, 0, false
	}
	return entry.Payload, c.now().Sub(entry.StoredAt), true
}

// Fresh returns the payload only when it is younger than window.
func (c *ResponseCache[T]) Fresh(key string, window time.Duration) (T, bool) {
	payload, age, ok := c.Get(key)
	if !ok || age >= window {
		var zero T
		return zero, false
	}
	return payload, true
}

// Set stores payload under key with the current time, replacing any prior entry.
func (c *ResponseCache[T]) Set(key string, payload T) {
	c.SetAt(key, payload, c.now())
}

// SetAt stores payload with an explicit timestamp.
func (c *ResponseCache[T]) SetAt(key string, payload T, storedAt time.Time) {
	c.mu.Lock()
	c.entries[key] = CacheEntry[T]{Payload: payload, StoredAt: storedAt}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *ResponseCache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]CacheEntry[T])
	c.mu.Unlock()
}

// Stats reports size, sorted keys and the oldest timestamp.
func (c *ResponseCache[T]) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := CacheStats{Size: len(c.entries), Keys: make([]string, 0, len(c.entries))}
	for key, entry := range c.entries {
		stats.Keys = append(stats.Keys, key)
		if stats.OldestEntry.IsZero() || entry.StoredAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.StoredAt
		}
	}
	sort.Strings(stats.Keys)
	return stats
}
