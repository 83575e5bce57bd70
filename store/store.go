package store

import (
	"context"

	"github.com/rackguard/rackguard/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) IsInitialized(ctx context.Context) (bool, error) {
	return s.driver.IsInitialized(ctx)
}

func (s *Store) UpsertChunk(ctx context.Context, chunk *Chunk) (*Chunk, error) {
	return s.driver.UpsertChunk(ctx, chunk)
}

func (s *Store) DeleteChunksBySource(ctx context.Context, sourceID string) error {
	return s.driver.DeleteChunksBySource(ctx, sourceID)
}

func (s *Store) SearchSemantic(ctx context.Context, opts *SemanticSearchOptions) ([]*SearchResult, error) {
	return s.driver.SearchSemantic(ctx, opts)
}

func (s *Store) SearchHybrid(ctx context.Context, opts *HybridSearchOptions) ([]*SearchResult, error) {
	return s.driver.SearchHybrid(ctx, opts)
}

func (s *Store) ReferencesByTopic(ctx context.Context, topic string, limit int) ([]*Reference, error) {
	return s.driver.ReferencesByTopic(ctx, topic, limit)
}
