package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackguard/rackguard/server/queryengine"
)

func TestClassifyStrategies(t *testing.T) {
	tracker := NewTracker(DefaultStoreConfig())

	t.Run("no history is standard", func(t *testing.T) {
		plan := tracker.Plan("fresh", "it")
		assert.Equal(t, StrategyStandard, plan.Strategy)
	})

	t.Run("short demonstrative query refines", func(t *testing.T) {
		tracker.RecordTurn("s1", "shuttle asrs spacing", queryengine.ExtractEntities("shuttle asrs spacing"), nil)
		plan := tracker.Plan("s1", "what about it")
		assert.Equal(t, StrategyContextualRefinement, plan.Strategy)
	})

	t.Run("continuation phrase expands", func(t *testing.T) {
		tracker.RecordTurn("s2", "wet pipe rules", queryengine.Entities{}, nil)
		plan := tracker.Plan("s2", "what about open-top containers in the same rack")
		assert.Equal(t, StrategyContextualExpansion, plan.Strategy)
	})

	t.Run("repeated topic deep dives", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			tracker.RecordTurn("s3", "shuttle asrs", queryengine.Entities{"asrs_type": {"shuttle"}}, nil)
		}
		plan := tracker.Plan("s3", "give me every shuttle sprinkler requirement in detail please")
		assert.Equal(t, StrategyDeepDive, plan.Strategy)
		assert.True(t, plan.BoostRecent)
	})

	t.Run("comparison keyword", func(t *testing.T) {
		tracker.RecordTurn("s4", "wet systems", queryengine.Entities{}, nil)
		plan := tracker.Plan("s4", "wet pipe versus dry pipe for open racks please")
		assert.Equal(t, StrategyComparison, plan.Strategy)
		assert.True(t, plan.Diversify)
	})
}

func TestRefinementEnhancedQuery(t *testing.T) {
	tracker := NewTracker(DefaultStoreConfig())

	// Four prior turns, the last mentioning shuttle ASRS.
	for i := 0; i < 3; i++ {
		tracker.RecordTurn("s1", fmt.Sprintf("warehouse question %d", i), queryengine.Entities{}, nil)
	}
	tracker.RecordTurn("s1", "shuttle ASRS sprinklers",
		queryengine.ExtractEntities("shuttle ASRS sprinklers"), nil)

	plan := tracker.Plan("s1", "it")

	require.Equal(t, StrategyContextualRefinement, plan.Strategy)
	assert.Contains(t, plan.EnhancedQuery, "Regarding: shuttle")
	assert.Contains(t, plan.EnhancedQuery, "it")
}

func TestRefinementTopicFilters(t *testing.T) {
	tracker := NewTracker(DefaultStoreConfig())

	tracker.RecordTurn("s1", "shuttle asrs", queryengine.Entities{"asrs_type": {"shuttle"}}, nil)
	plan := tracker.Plan("s1", "tell me about this")

	require.Equal(t, StrategyContextualRefinement, plan.Strategy)
	assert.Equal(t, []string{"shuttle"}, plan.TopicFilters["asrs_type"])
}

func TestAdjustParams(t *testing.T) {
	tests := []struct {
		strategy Strategy
		check    func(t *testing.T, params queryengine.SearchParams)
	}{
		{
			strategy: StrategyContextualRefinement,
			check: func(t *testing.T, params queryengine.SearchParams) {
				assert.Equal(t, 5, params.MatchCount)
				assert.InDelta(t, 0.8, params.SimilarityThreshold, 1e-9)
			},
		},
		{
			strategy: StrategyContextualExpansion,
			check: func(t *testing.T, params queryengine.SearchParams) {
				assert.Equal(t, 15, params.MatchCount)
				assert.True(t, params.UseQueryExpansion)
			},
		},
		{
			strategy: StrategyDeepDive,
			check: func(t *testing.T, params queryengine.SearchParams) {
				assert.Equal(t, 15, params.MatchCount)
			},
		},
		{
			strategy: StrategyComparison,
			check: func(t *testing.T, params queryengine.SearchParams) {
				assert.Equal(t, 20, params.MatchCount)
			},
		},
		{
			strategy: StrategyStandard,
			check: func(t *testing.T, params queryengine.SearchParams) {
				assert.Equal(t, 10, params.MatchCount)
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			params := queryengine.SearchParams{MatchCount: 10, SimilarityThreshold: 0.7}
			plan := &Plan{Strategy: tt.strategy}
			plan.AdjustParams(&params)
			tt.check(t, params)
		})
	}
}

func TestRescoreFactor(t *testing.T) {
	snapshot := Snapshot{
		Turns: []*Turn{
			{ResultIDs: []string{"old"}},
			{ResultIDs: []string{"recent"}},
		},
		MentionedReferences: []string{"Table 2-1"},
	}

	t.Run("deep dive boosts recently retrieved", func(t *testing.T) {
		plan := &Plan{Strategy: StrategyDeepDive, snapshot: snapshot}
		assert.InDelta(t, 1.2, plan.RescoreFactor("recent", "plain text"), 1e-9)
		assert.InDelta(t, 1.0, plan.RescoreFactor("unseen", "plain text"), 1e-9)
	})

	t.Run("expansion penalizes repeats", func(t *testing.T) {
		plan := &Plan{Strategy: StrategyContextualExpansion, snapshot: snapshot}
		assert.InDelta(t, 0.7, plan.RescoreFactor("recent", "plain text"), 1e-9)
	})

	t.Run("mentioned reference boosts regardless of strategy", func(t *testing.T) {
		plan := &Plan{Strategy: StrategyStandard, snapshot: snapshot}
		factor := plan.RescoreFactor("unseen", "see table 2-1 for details")
		assert.InDelta(t, 1.15, factor, 1e-9)
	})
}
