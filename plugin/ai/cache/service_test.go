package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := newLRUCache(100, time.Minute)

	t.Run("PutAndGet", func(t *testing.T) {
		cache.put("key1", []float32{0.1, 0.2})

		vec, ok := cache.get("key1")
		assert.True(t, ok)
		assert.Equal(t, []float32{0.1, 0.2}, vec)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		vec, ok := cache.get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, vec)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		cache.put("key2", []float32{1})
		cache.put("key2", []float32{2})

		vec, ok := cache.get("key2")
		assert.True(t, ok)
		assert.Equal(t, []float32{2}, vec)
	})
}

func TestLRUCache_Expiration(t *testing.T) {
	cache := newLRUCache(100, 50*time.Millisecond)

	cache.put("expiring", []float32{1})

	vec, ok := cache.get("expiring")
	assert.True(t, ok)
	assert.Equal(t, []float32{1}, vec)

	time.Sleep(60 * time.Millisecond)

	vec, ok = cache.get("expiring")
	assert.False(t, ok)
	assert.Nil(t, vec)
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := newLRUCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		cache.put(fmt.Sprintf("key%d", i), []float32{float32(i)})
	}
	require.Equal(t, 3, cache.size())

	// Touch key0 so key1 becomes the oldest.
	_, ok := cache.get("key0")
	require.True(t, ok)

	cache.put("key3", []float32{3})

	_, ok = cache.get("key1")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = cache.get("key0")
	assert.True(t, ok)
	_, ok = cache.get("key3")
	assert.True(t, ok)
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	cache := newLRUCache(100, 10*time.Millisecond)

	cache.put("a", []float32{1})
	cache.put("b", []float32{2})
	time.Sleep(20 * time.Millisecond)

	removed := cache.cleanupExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, cache.size())
}

func TestService_ModelScopedKeys(t *testing.T) {
	svc := NewService(ServiceConfig{Capacity: 10, DefaultTTL: time.Minute})
	defer svc.Close()

	ctx := context.Background()
	svc.Put(ctx, "model-a", "sprinkler spacing", []float32{0.5})

	_, ok := svc.Get(ctx, "model-b", "sprinkler spacing")
	assert.False(t, ok, "same text under a different model must miss")

	vec, ok := svc.Get(ctx, "model-a", "sprinkler spacing")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5}, vec)
}
