// internal/storage/response_cache.go
package storage

import (
	"sort"
	"sync"
	"time"
)

// ResponseCache is a bounded in-memory cache for model responses keyed by a
// hash of the request. Entries expire after a fixed duration; when the cache
// grows past maxSize the least recently read fifth is evicted.
type ResponseCache struct {
	cache      map[string]*responseCacheEntry
	mutex      sync.RWMutex
	maxSize    int
	expiration time.Duration
}

type responseCacheEntry struct {
	data      string
	createdAt time.Time
	lastRead  time.Time
}

// NewResponseCache creates a response cache. Non-positive arguments fall
// back to 500 entries and 10 minutes.
func NewResponseCache(maxSize int, expiration time.Duration) *ResponseCache {
	if maxSize <= 0 {
		maxSize = 500
	}
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}

	return &ResponseCache{
		cache:      make(map[string]*responseCacheEntry),
		maxSize:    maxSize,
		expiration: expiration,
	}
}

// Get returns the cached response text for key, if present and fresh.
func (c *ResponseCache) Get(key string) (string, bool) {
	c.mutex.RLock()
	entry, exists := c.cache[key]
	c.mutex.RUnlock()

	if !exists {
		return "", false
	}

	if time.Since(entry.createdAt) > c.expiration {
		c.mutex.Lock()
		delete(c.cache, key)
		c.mutex.Unlock()
		return "", false
	}

	c.mutex.Lock()
	entry.lastRead = time.Now()
	c.mutex.Unlock()

	return entry.data, true
}

// Set stores a response under key, evicting old entries when full.
func (c *ResponseCache) Set(key, data string) {
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &responseCacheEntry{
		data:      data,
		createdAt: now,
		lastRead:  now,
	}

	if len(c.cache) > c.maxSize {
		c.evictLRU(max(1, c.maxSize/5))
	}
}

// Clear drops all cached responses.
func (c *ResponseCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string]*responseCacheEntry)
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// evictLRU removes the count least recently read entries. Caller must hold
// the write lock.
func (c *ResponseCache) evictLRU(count int) {
	type keyAge struct {
		key  string
		time time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.lastRead})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})

	for i := 0; i < count && i < len(entries); i++ {
		delete(c.cache, entries[i].key)
	}
}
