package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackguard/rackguard/server/queryengine"
	"github.com/rackguard/rackguard/server/session"
	"github.com/rackguard/rackguard/store"
)

func newTestEngine(searcher *fakeSearcher) *Engine {
	exec := NewExecutor(searcher, &fakeEmbedder{}, nil)
	tracker := session.NewTracker(session.DefaultStoreConfig())
	return NewEngine(exec, tracker, nil, nil)
}

func TestRouteAndSearchEmptyQuery(t *testing.T) {
	engine := newTestEngine(&fakeSearcher{})
	_, err := engine.RouteAndSearch(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRouteAndSearchSpecificReference(t *testing.T) {
	searcher := &fakeSearcher{
		hybridByQuery: map[string][]*store.SearchResult{
			"What does Table 2-1 say about aisle width?": {
				{ID: "t", TableNumber: "Table 2-1", Content: "Table 2-1 aisle width by depth", Similarity: 0.9},
			},
		},
	}
	engine := newTestEngine(searcher)

	resp, err := engine.RouteAndSearch(context.Background(), "What does Table 2-1 say about aisle width?", "")
	require.NoError(t, err)

	assert.Equal(t, queryengine.QueryTypeSpecificReference, resp.QueryType)
	assert.Equal(t, queryengine.StrategyHybridTextHeavy, resp.StrategyUsed)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Clusters[ClusterTables], "t")
	assert.InDelta(t, 0.9, resp.Stats.AvgSimilarity, 1e-9)

	// Reference routing carries the filter through to the store call.
	require.NotEmpty(t, searcher.hybridCalls)
	call := searcher.hybridCalls[0]
	require.NotNil(t, call.Filter)
	assert.Equal(t, []string{"Table 2-1"}, call.Filter.TableNumbers)
	assert.Equal(t, 0.7, call.TextWeight)
}

func TestRouteAndSearchRecordsSessionTurn(t *testing.T) {
	searcher := &fakeSearcher{
		hybridByQuery: map[string][]*store.SearchResult{
			"shuttle asrs sprinkler requirements": {
				{ID: "r1", Content: "Sprinklers shall protect shuttle systems.", Similarity: 0.8},
			},
		},
	}
	engine := newTestEngine(searcher)

	resp, err := engine.RouteAndSearch(context.Background(), "shuttle asrs sprinkler requirements", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.StrategyStandard, resp.ConversationStrategy)

	// A short follow-up with a demonstrative becomes a refinement against
	// the recorded turn.
	searcher.mu.Lock()
	searcher.hybridByQuery = nil
	searcher.semanticByQuery = map[string][]*store.SearchResult{
		"": {{ID: "r2", Content: "Spacing details.", Similarity: 0.7}},
	}
	searcher.mu.Unlock()

	resp2, err := engine.RouteAndSearch(context.Background(), "spacing for it", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.StrategyContextualRefinement, resp2.ConversationStrategy)
	assert.NotEmpty(t, resp2.EnhancedQuery)
}

func TestRouteAndSearchExpandsVariants(t *testing.T) {
	searcher := &fakeSearcher{
		hybridByQuery: map[string][]*store.SearchResult{
			"sprinkler requirements for shuttle asrs": {
				{ID: "r1", Content: "Sprinkler requirements.", Similarity: 0.8},
			},
		},
	}
	engine := newTestEngine(searcher)

	resp, err := engine.RouteAndSearch(context.Background(), "sprinkler requirements for shuttle asrs", "")
	require.NoError(t, err)
	assert.Equal(t, queryengine.StrategyHybrid, resp.StrategyUsed)

	// Expansion produces acronym, synonym, and domain-context variants; the
	// hybrid fan-out runs one call per variant up to its cap.
	assert.Greater(t, resp.Stats.VariantsUsed, 1)
	require.Len(t, searcher.hybridCalls, 3)
	queries := make([]string, 0, len(searcher.hybridCalls))
	for _, call := range searcher.hybridCalls {
		queries = append(queries, call.Query)
	}
	assert.Contains(t, queries, "sprinkler requirements for shuttle asrs")
}

func TestRouteAndSearchMultiStageRunsHybridStages(t *testing.T) {
	searcher := &fakeSearcher{
		semanticByQuery: map[string][]*store.SearchResult{
			"": {{ID: "r1", Content: "ESFR alternatives.", Similarity: 0.8}},
		},
	}
	engine := newTestEngine(searcher)

	resp, err := engine.RouteAndSearch(context.Background(), "How can I reduce sprinkler costs?", "")
	require.NoError(t, err)
	assert.Equal(t, queryengine.QueryTypeCostOptimization, resp.QueryType)
	assert.Equal(t, queryengine.StrategyMultiStage, resp.StrategyUsed)

	// Stage one is a broad semantic pass; stage two reaches the hybrid
	// passes because expansion supplied secondary variants.
	require.Len(t, searcher.semanticCalls, 1)
	assert.Equal(t, 25, searcher.semanticCalls[0].Limit)
	require.Len(t, searcher.hybridCalls, 2)
	for _, call := range searcher.hybridCalls {
		assert.Equal(t, 12, call.Limit)
		assert.Equal(t, 0.5, call.TextWeight)
		assert.NotEqual(t, "How can I reduce sprinkler costs?", call.Query)
	}
}

func TestRouteAndSearchRefinementInheritsTopicFilters(t *testing.T) {
	searcher := &fakeSearcher{
		hybridByQuery: map[string][]*store.SearchResult{
			"shuttle asrs sprinkler requirements": {
				{ID: "r1", Content: "Sprinklers shall protect shuttle systems.", Similarity: 0.8},
			},
		},
	}
	engine := newTestEngine(searcher)

	_, err := engine.RouteAndSearch(context.Background(), "shuttle asrs sprinkler requirements", "sess-2")
	require.NoError(t, err)

	searcher.mu.Lock()
	searcher.semanticByQuery = map[string][]*store.SearchResult{
		"": {{ID: "r2", Content: "Spacing details.", Similarity: 0.7}},
	}
	searcher.mu.Unlock()

	resp, err := engine.RouteAndSearch(context.Background(), "spacing for it", "sess-2")
	require.NoError(t, err)
	assert.Equal(t, session.StrategyContextualRefinement, resp.ConversationStrategy)

	// The first turn's shuttle topic survives as a filter on the follow-up.
	require.NotEmpty(t, searcher.semanticCalls)
	for _, call := range searcher.semanticCalls {
		require.NotNil(t, call.Filter)
		assert.Equal(t, []string{"shuttle"}, call.Filter.ASRSTypes)
	}
}

func TestRouteAndSearchAllFailed(t *testing.T) {
	engine := newTestEngine(&fakeSearcher{failAll: true})
	_, err := engine.RouteAndSearch(context.Background(), "sprinkler requirements for shuttle asrs", "")
	assert.ErrorIs(t, err, ErrAllSearchesFailed)
}

func TestAnalyzeIntent(t *testing.T) {
	engine := newTestEngine(&fakeSearcher{})

	intent, err := engine.AnalyzeIntent("What does Table 2-1 require for ESFR protection?")
	require.NoError(t, err)
	assert.Equal(t, queryengine.QueryTypeSpecificReference, intent.QueryType)
	assert.Equal(t, queryengine.StrategyHybridTextHeavy, intent.RecommendedStrategy)
	assert.Greater(t, intent.AdaptiveTextWeight, queryengine.DefaultBaseTextWeight)

	// Diagnostic only: nothing reaches the store.
	assert.Empty(t, engine.tracker.Sessions())
}

func TestAnalyzeIntentEmpty(t *testing.T) {
	engine := newTestEngine(&fakeSearcher{})
	_, err := engine.AnalyzeIntent("")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRecordTurnResponseUnknownSession(t *testing.T) {
	engine := newTestEngine(&fakeSearcher{})
	assert.NotPanics(t, func() {
		engine.RecordTurnResponse("missing", "no such session")
	})
}
