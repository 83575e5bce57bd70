// Package cache provides an in-process LRU cache for embedding vectors.
// Embedding the same query text twice within a session is common (retry,
// refine, re-rank), so caching saves both latency and API cost.
package cache

import "context"

// VectorCache is the embedding cache interface.
type VectorCache interface {
	// Get returns the cached vector for a model and text, if present.
	Get(ctx context.Context, model, text string) ([]float32, bool)

	// Put stores a vector for a model and text.
	Put(ctx context.Context, model, text string, vector []float32)
}
