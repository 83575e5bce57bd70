package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rackguard/rackguard/plugin/ai/cache"
	"github.com/rackguard/rackguard/plugin/ai/timeout"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int

	cache   cache.VectorCache
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[][]float32]
}

// NewEmbeddingService creates a new EmbeddingService. The cache is optional;
// pass nil to disable caching.
func NewEmbeddingService(cfg *EmbeddingConfig, vectorCache cache.VectorCache) (EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}

	// Trip after repeated provider failures so a flapping backend fails
	// fast instead of stalling every search on timeouts.
	breaker := gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:    "embedding",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		cache:      vectorCache,
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), int(rateLimit)+1),
		breaker:    breaker,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.cache != nil {
		if vector, ok := s.cache.Get(ctx, s.model, text); ok {
			return vector, nil
		}
	}

	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}

	if s.cache != nil {
		s.cache.Put(ctx, s.model, text, vectors[0])
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.Embedding)
	defer cancel()

	vectors, err := s.breaker.Execute(func() ([][]float32, error) {
		req := openai.EmbeddingRequest{
			Input:      texts,
			Model:      openai.EmbeddingModel(s.model),
			Dimensions: s.dimensions,
		}
		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("create embeddings failed: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("empty embedding response")
		}

		out := make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			out[i] = data.Embedding
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}
