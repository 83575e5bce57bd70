package store

import (
	"context"
	"database/sql"
)

// SemanticSearchOptions controls a pure vector search.
type SemanticSearchOptions struct {
	Embedding []float32
	Limit     int
	Threshold float64
	Filter    *FilterCriteria
}

// HybridSearchOptions controls a combined vector + full-text search.
// TextWeight is the share of the fused score contributed by the text rank;
// the vector share is 1 - TextWeight.
type HybridSearchOptions struct {
	Query      string
	Embedding  []float32
	Limit      int
	TextWeight float64
	Filter     *FilterCriteria
}

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Chunk model related methods.
	UpsertChunk(ctx context.Context, chunk *Chunk) (*Chunk, error)
	DeleteChunksBySource(ctx context.Context, sourceID string) error

	// SearchSemantic performs cosine-similarity search over chunk embeddings.
	SearchSemantic(ctx context.Context, opts *SemanticSearchOptions) ([]*SearchResult, error)

	// SearchHybrid fuses vector similarity with full-text rank.
	SearchHybrid(ctx context.Context, opts *HybridSearchOptions) ([]*SearchResult, error)

	// ReferencesByTopic lists table and figure references matching a topic.
	ReferencesByTopic(ctx context.Context, topic string, limit int) ([]*Reference, error)
}
