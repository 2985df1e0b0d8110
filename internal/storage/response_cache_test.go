// internal/storage/response_cache_test.go
package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCacheSetGet(t *testing.T) {
	cache := NewResponseCache(10, time.Minute)

	cache.Set("k", "v")

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestResponseCacheExpiration(t *testing.T) {
	cache := NewResponseCache(10, 10*time.Millisecond)

	cache.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestResponseCacheEvictsLeastRecentlyRead(t *testing.T) {
	cache := NewResponseCache(5, time.Minute)

	for i := 0; i < 5; i++ {
		cache.Set(fmt.Sprintf("k%d", i), "v")
		time.Sleep(time.Millisecond)
	}

	// Touch k0 so it is the most recently read.
	_, ok := cache.Get("k0")
	require.True(t, ok)
	time.Sleep(time.Millisecond)

	cache.Set("k5", "v")

	assert.LessOrEqual(t, cache.Len(), 5)
	_, ok = cache.Get("k0")
	assert.True(t, ok, "recently read entry must survive eviction")
	_, ok = cache.Get("k1")
	assert.False(t, ok, "least recently read entry must be evicted")
}

func TestResponseCacheClear(t *testing.T) {
	cache := NewResponseCache(10, time.Minute)

	cache.Set("a", "1")
	cache.Set("b", "2")
	require.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestResponseCacheDefaults(t *testing.T) {
	cache := NewResponseCache(0, 0)
	assert.Equal(t, 500, cache.maxSize)
	assert.Equal(t, 10*time.Minute, cache.expiration)
}
