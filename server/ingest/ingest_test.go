package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackguard/rackguard/store"
)

type stubEmbedder struct {
	fail bool
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.fail {
		return nil, errors.New("embedding unavailable")
	}
	return []float32{0.1, 0.2}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for range texts {
		v, err := s.Embed(ctx, "")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 2 }

type fakeWriter struct {
	mu       sync.Mutex
	chunks   map[string]*store.Chunk
	deleted  []string
	upsertFn func(*store.Chunk) error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{chunks: make(map[string]*store.Chunk)}
}

func (f *fakeWriter) UpsertChunk(_ context.Context, chunk *store.Chunk) (*store.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertFn != nil {
		if err := f.upsertFn(chunk); err != nil {
			return nil, err
		}
	}
	f.chunks[chunk.ID] = chunk
	return chunk, nil
}

func (f *fakeWriter) DeleteChunksBySource(_ context.Context, sourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sourceID)
	for id, chunk := range f.chunks {
		if chunk.SourceID == sourceID {
			delete(f.chunks, id)
		}
	}
	return nil
}

func TestIngestDocument(t *testing.T) {
	writer := newFakeWriter()
	ingestor := NewIngestor(writer, &stubEmbedder{}, nil, nil)

	sentence := "In-rack sprinklers protect each storage tier of the system. "
	doc := &Document{
		SourceID:  "doc-1",
		Content:   strings.Repeat(sentence, 60),
		ASRSTopic: "in-rack protection",
		Metadata:  map[string]any{"edition": "2024"},
	}

	n, err := ingestor.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.Greater(t, n, 1)
	assert.Len(t, writer.chunks, n)
	assert.Equal(t, []string{"doc-1"}, writer.deleted)

	for _, chunk := range writer.chunks {
		assert.Equal(t, "doc-1", chunk.SourceID)
		assert.Equal(t, "text", chunk.SourceType)
		assert.NotEmpty(t, chunk.Embedding)
		assert.Equal(t, "2024", chunk.Metadata["edition"])
		assert.Equal(t, n, chunk.Metadata["total_chunks"])
	}
}

func TestIngestReplacesPreviousChunks(t *testing.T) {
	writer := newFakeWriter()
	writer.chunks["doc-1#9"] = &store.Chunk{ID: "doc-1#9", SourceID: "doc-1"}
	ingestor := NewIngestor(writer, &stubEmbedder{}, nil, nil)

	_, err := ingestor.Ingest(context.Background(), &Document{
		SourceID: "doc-1",
		Content:  "Short replacement text.",
	})
	require.NoError(t, err)
	_, stale := writer.chunks["doc-1#9"]
	assert.False(t, stale)
}

func TestIngestEmbeddingFailure(t *testing.T) {
	writer := newFakeWriter()
	ingestor := NewIngestor(writer, &stubEmbedder{fail: true}, nil, nil)

	_, err := ingestor.Ingest(context.Background(), &Document{
		SourceID: "doc-1",
		Content:  "Sprinkler layout text.",
	})
	require.Error(t, err)
	assert.Empty(t, writer.chunks)
}

func TestIngestRequiresSourceID(t *testing.T) {
	ingestor := NewIngestor(newFakeWriter(), &stubEmbedder{}, nil, nil)
	_, err := ingestor.Ingest(context.Background(), &Document{Content: "text"})
	assert.Error(t, err)
}

func TestIngestEmptyDocument(t *testing.T) {
	writer := newFakeWriter()
	ingestor := NewIngestor(writer, &stubEmbedder{}, nil, nil)

	n, err := ingestor.Ingest(context.Background(), &Document{SourceID: "doc-2", Content: "  "})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.deleted)
}
