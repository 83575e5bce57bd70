package retrieval

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rackguard/rackguard/plugin/ai"
	"github.com/rackguard/rackguard/server/queryengine"
	"github.com/rackguard/rackguard/store"
)

// Searcher is the retrieval surface of the store the executor fans out to.
type Searcher interface {
	SearchSemantic(ctx context.Context, opts *store.SemanticSearchOptions) ([]*store.SearchResult, error)
	SearchHybrid(ctx context.Context, opts *store.HybridSearchOptions) ([]*store.SearchResult, error)
}

// Variant caps per strategy. Fan-out cost grows linearly with variants, so
// lexical-heavy strategies stay narrow.
const (
	hybridVariantCap    = 3
	textHeavyVariantCap = 2
	multiStageExtraCap  = 2
)

// Executor fans a query and its variants out to the store according to a
// strategy, merges the sub-call results in deterministic order, and
// deduplicates them.
type Executor struct {
	searcher Searcher
	embedder ai.EmbeddingService
	logger   *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(searcher Searcher, embedder ai.EmbeddingService, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		searcher: searcher,
		embedder: embedder,
		logger:   logger,
	}
}

// subCall is one planned retrieval call. Plan order is the merge order.
type subCall struct {
	variant    string
	hybrid     bool
	limit      int
	textWeight float64
	threshold  float64
}

// Execute runs the fan-out for a strategy. A failed sub-call contributes
// zero results; only total failure returns ErrAllSearchesFailed.
func (e *Executor) Execute(
	ctx context.Context,
	strategy queryengine.SearchStrategy,
	params queryengine.SearchParams,
	variants []string,
	filter *store.FilterCriteria,
) ([]*store.SearchResult, error) {
	plan := buildPlan(strategy, params, variants)
	if len(plan) == 0 {
		return nil, nil
	}

	// Each sub-call writes only its own slot; the slots are combined after
	// every call has settled.
	results := make([][]*store.SearchResult, len(plan))
	failures := make([]bool, len(plan))

	var g errgroup.Group
	for i, call := range plan {
		i, call := i, call
		g.Go(func() error {
			hits, err := e.runCall(ctx, call, filter)
			if err != nil {
				e.logger.Warn("search sub-call failed",
					slog.String("variant", call.variant),
					slog.Bool("hybrid", call.hybrid),
					slog.String("error", err.Error()))
				failures[i] = true
				return nil
			}
			results[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	if failed == len(plan) {
		return nil, ErrAllSearchesFailed
	}

	return dedupe(results), nil
}

func (e *Executor) runCall(ctx context.Context, call subCall, filter *store.FilterCriteria) ([]*store.SearchResult, error) {
	embedding, err := e.embedder.Embed(ctx, call.variant)
	if err != nil {
		return nil, err
	}

	if call.hybrid {
		return e.searcher.SearchHybrid(ctx, &store.HybridSearchOptions{
			Query:      call.variant,
			Embedding:  embedding,
			Limit:      call.limit,
			TextWeight: call.textWeight,
			Filter:     filter,
		})
	}
	return e.searcher.SearchSemantic(ctx, &store.SemanticSearchOptions{
		Embedding: embedding,
		Limit:     call.limit,
		Threshold: call.threshold,
		Filter:    filter,
	})
}

// buildPlan resolves a strategy into an ordered list of sub-calls.
func buildPlan(strategy queryengine.SearchStrategy, params queryengine.SearchParams, variants []string) []subCall {
	if len(variants) == 0 {
		return nil
	}

	var plan []subCall
	switch strategy {
	case queryengine.StrategySemantic:
		for _, variant := range variants {
			plan = append(plan, subCall{
				variant:   variant,
				limit:     params.MatchCount,
				threshold: params.SimilarityThreshold,
			})
		}

	case queryengine.StrategyHybrid, queryengine.StrategyHybridTextHeavy:
		cap := hybridVariantCap
		if strategy == queryengine.StrategyHybridTextHeavy {
			cap = textHeavyVariantCap
		}
		for _, variant := range variants {
			if len(plan) == cap {
				break
			}
			plan = append(plan, subCall{
				variant:    variant,
				hybrid:     true,
				limit:      params.MatchCount,
				textWeight: params.TextWeight,
			})
		}

	case queryengine.StrategyMultiStage:
		// Stage 1: one broad semantic pass on the primary query.
		plan = append(plan, subCall{
			variant: variants[0],
			limit:   params.InitialCount,
		})
		// Stage 2: balanced hybrid passes over extra variants at half the
		// initial count.
		for _, variant := range variants[1:] {
			if len(plan) == 1+multiStageExtraCap {
				break
			}
			plan = append(plan, subCall{
				variant:    variant,
				hybrid:     true,
				limit:      params.InitialCount / 2,
				textWeight: 0.5,
			})
		}
	}
	return plan
}

// dedupe merges slot results in plan order, keeping the first occurrence of
// each result ID.
func dedupe(slots [][]*store.SearchResult) []*store.SearchResult {
	seen := make(map[string]struct{})
	var merged []*store.SearchResult
	for _, slot := range slots {
		for _, result := range slot {
			if _, ok := seen[result.ID]; ok {
				continue
			}
			seen[result.ID] = struct{}{}
			merged = append(merged, result)
		}
	}
	return merged
}
