// Package retrieval implements the retrieval decision pipeline: routing a
// query to a search strategy, fanning it out to the store, rescoring the
// hits with domain heuristics, and folding conversation context into both
// the query and the ranking.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/rackguard/rackguard/internal/metrics"
	"github.com/rackguard/rackguard/plugin/ai/timeout"
	"github.com/rackguard/rackguard/server/queryengine"
	"github.com/rackguard/rackguard/server/session"
	"github.com/rackguard/rackguard/store"
)

const recordedResultIDs = 5

// SearchStats summarizes a finished search.
type SearchStats struct {
	TotalResults  int     `json:"total_results"`
	AvgSimilarity float64 `json:"avg_similarity"`
	AvgConfidence float64 `json:"avg_confidence"`
	VariantsUsed  int     `json:"variants_used"`
	LatencyMS     int64   `json:"latency_ms"`
}

// SearchResponse is the full outcome of RouteAndSearch.
type SearchResponse struct {
	Query                string                     `json:"query"`
	SessionID            string                     `json:"session_id,omitempty"`
	EnhancedQuery        string                     `json:"enhanced_query,omitempty"`
	QueryType            queryengine.QueryType      `json:"query_type"`
	StrategyUsed         queryengine.SearchStrategy `json:"strategy_used"`
	ConversationStrategy session.Strategy           `json:"conversation_strategy,omitempty"`
	Results              []*EnhancedResult          `json:"results"`
	Clusters             map[string][]string        `json:"clusters,omitempty"`
	Stats                SearchStats                `json:"stats"`
}

// Intent is the side-effect-free explanation of how a query would be
// handled.
type Intent struct {
	QueryType           queryengine.QueryType      `json:"query_type"`
	RecommendedStrategy queryengine.SearchStrategy `json:"recommended_strategy"`
	RecommendedParams   queryengine.SearchParams   `json:"recommended_params"`
	AdaptiveTextWeight  float64                    `json:"adaptive_text_weight"`
	DomainEntities      queryengine.Entities       `json:"domain_entities"`
}

// Engine ties the pipeline stages together.
type Engine struct {
	router    *queryengine.Router
	expander  *queryengine.Expander
	prefilter *queryengine.PreFilter
	executor  *Executor
	reranker  *Reranker
	tracker   *session.Tracker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(executor *Executor, tracker *session.Tracker, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		router:    queryengine.NewRouter(),
		expander:  queryengine.NewExpander(),
		prefilter: queryengine.NewPreFilter(),
		executor:  executor,
		reranker:  NewReranker(),
		tracker:   tracker,
		metrics:   m,
		logger:    logger,
	}
}

// RouteAndSearch runs the full pipeline for one query. sessionID may be
// empty, in which case no conversation context is consulted or recorded.
func (e *Engine) RouteAndSearch(ctx context.Context, query, sessionID string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()
	logger := e.logger.With(slog.String("request_id", shortuuid.New()))

	// Conversation plan is taken before the turn is recorded so the
	// classification sees only prior history.
	var plan *session.Plan
	searchQuery := query
	if sessionID != "" && e.tracker != nil {
		plan = e.tracker.Plan(sessionID, query)
		if plan.EnhancedQuery != "" {
			searchQuery = plan.EnhancedQuery
		}
	}

	analysis := e.router.Analyze(query)
	strategy, params := e.router.RouteAnalysis(analysis)
	if plan != nil {
		plan.AdjustParams(&params)
	}

	filter := e.prefilter.ExtractFilters(query)
	if plan != nil {
		mergeTopicFilters(filter, plan.TopicFilters)
	}

	// Reference lookups stay on the user's exact wording; every other
	// strategy fans out over expanded variants, with the per-strategy caps
	// applied by the executor.
	variants := []string{searchQuery}
	if strategy != queryengine.StrategyHybridTextHeavy || params.UseQueryExpansion {
		variants = e.expander.Expand(searchQuery)
	}

	logger.Info("routing query",
		slog.String("query_type", string(analysis.QueryType)),
		slog.String("strategy", string(strategy)),
		slog.Int("variants", len(variants)),
		slog.Float64("estimated_reduction", filter.EstimateReduction()))

	searchCtx, cancel := context.WithTimeout(ctx, timeout.Search)
	defer cancel()
	hits, err := e.executor.Execute(searchCtx, strategy, params, variants, filter)
	if err != nil {
		if e.metrics != nil {
			e.metrics.SearchErrors.Inc()
		}
		return nil, err
	}

	rerankLimit := params.RerankCount
	if rerankLimit == 0 {
		rerankLimit = params.MatchCount
	}
	results := e.reranker.Rerank(query, hits, rerankLimit)

	if plan != nil {
		for _, result := range results {
			result.RerankScore *= plan.RescoreFactor(result.Result.ID, result.Result.Content)
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].RerankScore > results[j].RerankScore
		})
	}

	if sessionID != "" && e.tracker != nil {
		ids := make([]string, 0, recordedResultIDs)
		for _, result := range results {
			if len(ids) == recordedResultIDs {
				break
			}
			ids = append(ids, result.Result.ID)
		}
		// Turns carry the extractor's categories (asrs_type, container, ...)
		// so the topics they seed line up with the filter fields a later
		// refinement turn merges into.
		e.tracker.RecordTurn(sessionID, query, queryengine.ExtractEntities(query), ids)
	}

	response := &SearchResponse{
		Query:        query,
		SessionID:    sessionID,
		QueryType:    analysis.QueryType,
		StrategyUsed: strategy,
		Results:      results,
		Clusters:     clusterIDs(results),
		Stats:        buildStats(results, len(variants), time.Since(start)),
	}
	if plan != nil {
		response.ConversationStrategy = plan.Strategy
		if searchQuery != query {
			response.EnhancedQuery = searchQuery
		}
	}

	if e.metrics != nil {
		e.metrics.SearchesTotal.WithLabelValues(string(strategy)).Inc()
		e.metrics.SearchDuration.Observe(time.Since(start).Seconds())
		e.metrics.ResultsReturned.Observe(float64(len(results)))
	}
	logger.Info("search complete",
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return response, nil
}

// AnalyzeIntent explains how a query would be routed without executing
// anything or touching session state.
func (e *Engine) AnalyzeIntent(query string) (*Intent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	analysis := e.router.Analyze(query)
	strategy, params := e.router.RouteAnalysis(analysis)
	return &Intent{
		QueryType:           analysis.QueryType,
		RecommendedStrategy: strategy,
		RecommendedParams:   params,
		AdaptiveTextWeight:  e.router.AdaptiveTextWeight(query, queryengine.DefaultBaseTextWeight),
		DomainEntities:      analysis.DomainEntities,
	}, nil
}

// RecordTurnResponse completes the two-phase turn write with the generated
// answer text. Unknown sessions are ignored.
func (e *Engine) RecordTurnResponse(sessionID, response string) {
	if e.tracker != nil {
		e.tracker.RecordResponse(sessionID, response)
	}
}

func mergeTopicFilters(filter *store.FilterCriteria, topicFilters map[string][]string) {
	for category, values := range topicFilters {
		switch category {
		case queryengine.CategoryASRSType:
			filter.ASRSTypes = mergeValues(filter.ASRSTypes, values)
		case queryengine.CategoryContainer:
			filter.ContainerTypes = mergeValues(filter.ContainerTypes, values)
		case queryengine.CategoryCommodity:
			filter.CommodityTypes = mergeValues(filter.CommodityTypes, values)
		case queryengine.CategoryProtection:
			filter.ProtectionSchemes = mergeValues(filter.ProtectionSchemes, values)
		}
	}
}

func mergeValues(existing, carried []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range carried {
		if _, ok := seen[v]; !ok {
			existing = append(existing, v)
			seen[v] = struct{}{}
		}
	}
	return existing
}

func clusterIDs(results []*EnhancedResult) map[string][]string {
	if len(results) == 0 {
		return nil
	}
	ids := make(map[string][]string)
	for name, members := range ClusterResults(results) {
		for _, member := range members {
			ids[name] = append(ids[name], member.Result.ID)
		}
	}
	return ids
}

func buildStats(results []*EnhancedResult, variants int, elapsed time.Duration) SearchStats {
	stats := SearchStats{
		TotalResults: len(results),
		VariantsUsed: variants,
		LatencyMS:    elapsed.Milliseconds(),
	}
	if len(results) == 0 {
		return stats
	}
	var simSum, confSum float64
	for _, result := range results {
		simSum += result.Result.Similarity
		confSum += result.Confidence
	}
	stats.AvgSimilarity = simSum / float64(len(results))
	stats.AvgConfidence = confSum / float64(len(results))
	return stats
}
