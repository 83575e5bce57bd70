package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// ServiceConfig configures the embedding cache.
type ServiceConfig struct {
	Capacity        int           // maximum number of vectors (default: 1000)
	DefaultTTL      time.Duration // entry lifetime (default: 10 minutes)
	CleanupInterval time.Duration // expired entry sweep interval (default: 1 minute)
}

// DefaultServiceConfig returns the default cache configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Capacity:        1000,
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Service implements VectorCache with LRU eviction and background cleanup.
type Service struct {
	lru *lruCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupInterval time.Duration
}

// NewService creates a new embedding cache service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		lru:             newLRUCache(cfg.Capacity, cfg.DefaultTTL),
		ctx:             ctx,
		cancel:          cancel,
		cleanupInterval: cfg.CleanupInterval,
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Close stops the background cleanup goroutine.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Get returns the cached vector for a model and text, if present.
func (s *Service) Get(_ context.Context, model, text string) ([]float32, bool) {
	return s.lru.get(cacheKey(model, text))
}

// Put stores a vector for a model and text.
func (s *Service) Put(_ context.Context, model, text string, vector []float32) {
	s.lru.put(cacheKey(model, text), vector)
}

// Size returns the number of cached vectors.
func (s *Service) Size() int {
	return s.lru.size()
}

func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.lru.cleanupExpired()
		}
	}
}

// cacheKey hashes the text so arbitrarily long queries produce fixed-size
// keys and the raw query never sits in a map key.
func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

var _ VectorCache = (*Service)(nil)
