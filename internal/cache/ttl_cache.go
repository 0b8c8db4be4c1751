/*-------------------------------------------------------------------------
 *
 * ttl_cache.go
 *    TTL-keyed cache with opportunistic eviction
 *
 * Entries are fresh for a bounded window and purged past a hard max
 * age. Eviction runs on every write so growth stays bounded under
 * sustained load without a dedicated scheduler goroutine.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/cache/ttl_cache.go
 *
 *-------------------------------------------------------------------------
 */

package cache

import (
	"sync"
	"time"

	"github.com/neurondb/NeuronSupervisor/internal/metrics"
)

/* CacheItem represents a cached item */
type CacheItem struct {
	Value       interface{}
	CachedAt    time.Time
	AccessCount int64
	LastAccess  time.Time
}

/* TTLCache is a time-to-live cache */
type TTLCache struct {
	name       string
	items      map[string]*CacheItem
	mu         sync.RWMutex
	freshTTL   time.Duration
	hardMaxAge time.Duration
	maxSize    int
	now        func() time.Time
}

/* NewTTLCache creates a new TTL cache */
func NewTTLCache(name string, freshTTL, hardMaxAge time.Duration, maxSize int) *TTLCache {
	return &TTLCache{
		name:       name,
		items:      make(map[string]*CacheItem),
		freshTTL:   freshTTL,
		hardMaxAge: hardMaxAge,
		maxSize:    maxSize,
		now:        time.Now,
	}
}

/* SetClock overrides the cache clock. Used by tests for TTL boundary
 * checks without sleeping. */
func (c *TTLCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

/* Get retrieves a value from cache. An entry older than the fresh TTL
 * is a miss and the caller must refetch. */
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		metrics.RecordCacheOperation(c.name, "miss")
		return nil, false
	}

	if c.now().Sub(item.CachedAt) >= c.freshTTL {
		metrics.RecordCacheOperation(c.name, "stale")
		return nil, false
	}

	item.AccessCount++
	item.LastAccess = c.now()

	metrics.RecordCacheOperation(c.name, "hit")
	return item.Value, true
}

/* Set stores a value in cache and runs an eviction pass */
func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	/* Opportunistic eviction of entries past hard max age */
	c.evictExpiredLocked()

	if len(c.items) >= c.maxSize {
		c.evictLRULocked()
	}

	c.items[key] = &CacheItem{
		Value:      value,
		CachedAt:   c.now(),
		LastAccess: c.now(),
	}
}

/* Invalidate removes a key from cache */
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

/* InvalidateAll clears all items from cache */
func (c *TTLCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*CacheItem)
}

/* Size returns the number of items in cache */
func (c *TTLCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

/* Cleanup runs one eviction pass over entries past the hard max age */
func (c *TTLCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictExpiredLocked()
}

/* evictExpiredLocked removes entries past the hard max age; mu held */
func (c *TTLCache) evictExpiredLocked() int {
	now := c.now()
	evicted := 0
	for key, item := range c.items {
		if now.Sub(item.CachedAt) >= c.hardMaxAge {
			delete(c.items, key)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.RecordCacheOperation(c.name, "evicted")
	}
	return evicted
}

/* evictLRULocked removes the least recently used item; mu held */
func (c *TTLCache) evictLRULocked() {
	if len(c.items) == 0 {
		return
	}

	var oldestKey string
	oldestTime := c.now()

	for key, item := range c.items {
		if item.LastAccess.Before(oldestTime) {
			oldestTime = item.LastAccess
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
		metrics.RecordCacheOperation(c.name, "evicted")
	}
}
