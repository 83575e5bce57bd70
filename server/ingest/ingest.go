package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/rackguard/rackguard/internal/metrics"
	"github.com/rackguard/rackguard/plugin/ai"
	"github.com/rackguard/rackguard/store"
)

const (
	embedBatchSize    = 16
	upsertConcurrency = 4
)

// Document is a source document to ingest.
type Document struct {
	SourceID   string
	SourceType string
	Content    string
	ASRSTopic  string
	Section    string
	Metadata   map[string]any
}

// ChunkWriter is the store surface the ingestor writes to.
type ChunkWriter interface {
	UpsertChunk(ctx context.Context, chunk *store.Chunk) (*store.Chunk, error)
	DeleteChunksBySource(ctx context.Context, sourceID string) error
}

// Ingestor chunks documents, embeds the chunks, and writes them to the
// store. Re-ingesting a source replaces its previous chunks.
type Ingestor struct {
	writer   ChunkWriter
	embedder ai.EmbeddingService
	chunker  *Chunker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewIngestor creates an Ingestor. metrics may be nil.
func NewIngestor(writer ChunkWriter, embedder ai.EmbeddingService, m *metrics.Metrics, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		writer:   writer,
		embedder: embedder,
		chunker:  NewChunker(),
		metrics:  m,
		logger:   logger,
	}
}

// Ingest processes one document end to end and returns the number of
// chunks written.
func (i *Ingestor) Ingest(ctx context.Context, doc *Document) (int, error) {
	if doc.SourceID == "" {
		return 0, errors.New("ingest: document source id is required")
	}
	chunks := i.chunker.Chunk(doc.Content, "")
	if len(chunks) == 0 {
		return 0, nil
	}
	i.logger.Info("ingesting document",
		slog.String("source_id", doc.SourceID),
		slog.Int("chunks", len(chunks)),
		slog.String("content_type", string(chunks[0].ContentType)))

	if err := i.writer.DeleteChunksBySource(ctx, doc.SourceID); err != nil {
		return 0, errors.Wrap(err, "delete previous chunks")
	}

	vectors, err := i.embedChunks(ctx, chunks)
	if err != nil {
		if i.metrics != nil {
			i.metrics.EmbeddingErrors.Inc()
		}
		return 0, errors.Wrap(err, "embed chunks")
	}

	var g errgroup.Group
	g.SetLimit(upsertConcurrency)
	gctx := ctx
	for idx, chunk := range chunks {
		idx, chunk := idx, chunk
		g.Go(func() error {
			record := buildChunk(doc, chunk, vectors[idx])
			if _, err := i.writer.UpsertChunk(gctx, record); err != nil {
				return errors.Wrapf(err, "upsert chunk %d", idx)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if i.metrics != nil {
		i.metrics.ChunksIngested.Add(float64(len(chunks)))
	}
	return len(chunks), nil
}

func (i *Ingestor) embedChunks(ctx context.Context, chunks []DocumentChunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}
		batch, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func buildChunk(doc *Document, chunk DocumentChunk, embedding []float32) *store.Chunk {
	metadata := make(map[string]any, len(doc.Metadata)+3)
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	metadata["content_type"] = string(chunk.ContentType)
	metadata["chunk_index"] = chunk.Index
	metadata["total_chunks"] = chunk.Total

	record := &store.Chunk{
		ID:         fmt.Sprintf("%s#%d", doc.SourceID, chunk.Index),
		SourceID:   doc.SourceID,
		SourceType: doc.SourceType,
		Content:    chunk.Content,
		Embedding:  embedding,
		ASRSTopic:  doc.ASRSTopic,
		Section:    doc.Section,
		Metadata:   metadata,
	}
	if record.SourceType == "" {
		switch chunk.ContentType {
		case ContentTable:
			record.SourceType = "table"
		case ContentFigureCaption:
			record.SourceType = "figure"
		default:
			record.SourceType = "text"
		}
	}
	return record
}
