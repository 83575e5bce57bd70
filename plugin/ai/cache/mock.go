package cache

import (
	"context"
	"sync"
)

// MockVectorCache is a map-backed VectorCache for testing. No TTL, no
// eviction.
type MockVectorCache struct {
	mu    sync.RWMutex
	store map[string][]float32
}

// NewMockVectorCache creates a new MockVectorCache.
func NewMockVectorCache() *MockVectorCache {
	return &MockVectorCache{
		store: make(map[string][]float32),
	}
}

// Get retrieves a vector from the mock cache.
func (m *MockVectorCache) Get(_ context.Context, model, text string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vector, ok := m.store[cacheKey(model, text)]
	return vector, ok
}

// Put stores a vector in the mock cache.
func (m *MockVectorCache) Put(_ context.Context, model, text string, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[cacheKey(model, text)] = vector
}

// Size returns the number of cached vectors.
func (m *MockVectorCache) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

var _ VectorCache = (*MockVectorCache)(nil)
