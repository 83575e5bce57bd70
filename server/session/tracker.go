package session

import (
	"strings"
	"time"

	"github.com/rackguard/rackguard/server/queryengine"
)

// topicFilterThreshold gates which active topics are strong enough to seed
// filters on a refinement turn.
const topicFilterThreshold = 0.3

var (
	demonstratives       = []string{"it", "this", "that", "those", "these"}
	continuationPrefixes = []string{"what about", "how about", "and for", "what if"}
	comparisonWords      = []string{"compare", "vs", "versus", "difference", "better"}
)

// Tracker is the conversation-aware layer over the session store.
type Tracker struct {
	store *Store
}

// NewTracker creates a Tracker with a bounded session store.
func NewTracker(cfg StoreConfig) *Tracker {
	return &Tracker{store: NewStore(cfg)}
}

// Plan holds the conversational classification of a turn and the context
// snapshot it was derived from. The snapshot predates the turn itself, so
// rescoring sees only prior history.
type Plan struct {
	Strategy      Strategy
	EnhancedQuery string

	// TopicFilters maps entity categories to values carried over from the
	// session's strong active topics. Populated for refinement turns only.
	TopicFilters map[string][]string

	BoostRecent bool
	Diversify   bool

	snapshot Snapshot
}

// Plan classifies the turn against the session's history and prepares the
// query-text and parameter adjustments for it.
func (t *Tracker) Plan(sessionID, query string) *Plan {
	snapshot := t.store.GetOrCreate(sessionID).Snapshot()
	strategy := classify(query, snapshot)

	plan := &Plan{
		Strategy:      strategy,
		EnhancedQuery: enhanceQuery(query, snapshot, strategy),
		snapshot:      snapshot,
	}
	switch strategy {
	case StrategyContextualRefinement:
		plan.TopicFilters = snapshot.TopicFilterValues(topicFilterThreshold)
	case StrategyDeepDive:
		plan.BoostRecent = true
	case StrategyComparison:
		plan.Diversify = true
	}
	return plan
}

// AdjustParams applies the strategy's parameter changes in place.
func (p *Plan) AdjustParams(params *queryengine.SearchParams) {
	switch p.Strategy {
	case StrategyContextualRefinement:
		// Refinement narrows: fewer, more similar results.
		params.MatchCount /= 2
		params.SimilarityThreshold += 0.1
	case StrategyContextualExpansion:
		params.MatchCount = int(float64(params.MatchCount) * 1.5)
		params.UseQueryExpansion = true
	case StrategyDeepDive:
		params.MatchCount += 5
	case StrategyComparison:
		params.MatchCount *= 2
	}
}

// RescoreFactor returns the context multiplier for a candidate, combining
// recency boosts and repeats suppression with the reference boost.
func (p *Plan) RescoreFactor(resultID, content string) float64 {
	factor := 1.0
	turns := p.snapshot.Turns

	switch p.Strategy {
	case StrategyDeepDive:
		if seenInTurns(turns, 3, resultID) {
			factor *= 1.2
		}
	case StrategyContextualExpansion:
		if seenInTurns(turns, 2, resultID) {
			factor *= 0.7
		}
	}

	contentLower := strings.ToLower(content)
	for _, ref := range p.snapshot.RecentReferences(5) {
		if strings.Contains(contentLower, strings.ToLower(ref)) {
			factor *= 1.15
		}
	}
	return factor
}

// RecordTurn appends the turn to the session's history at retrieval time.
// The response text arrives later via RecordResponse.
func (t *Tracker) RecordTurn(sessionID, query string, entities queryengine.Entities, resultIDs []string) {
	ctx := t.store.GetOrCreate(sessionID)
	ctx.AddTurn(&Turn{
		Query:     query,
		Timestamp: time.Now(),
		ResultIDs: resultIDs,
		Entities:  entities,
	})
}

// RecordResponse completes the two-phase turn write. A call for an unknown
// or expired session is a no-op.
func (t *Tracker) RecordResponse(sessionID, response string) {
	ctx, ok := t.store.Get(sessionID)
	if !ok {
		return
	}
	ctx.AttachResponse(response)
}

// Sessions returns the number of live sessions.
func (t *Tracker) Sessions() int {
	return t.store.Len()
}

// classify picks the conversational strategy, first match wins.
func classify(query string, snapshot Snapshot) Strategy {
	queryLower := strings.ToLower(query)
	words := strings.Fields(queryLower)

	if len(snapshot.Turns) > 0 && len(words) < 5 && containsWord(words, demonstratives) {
		return StrategyContextualRefinement
	}
	for _, prefix := range continuationPrefixes {
		if strings.HasPrefix(queryLower, prefix) {
			return StrategyContextualExpansion
		}
	}
	if len(snapshot.Turns) >= 3 {
		for topic := range snapshot.ActiveTopics {
			if value := topicValue(topic); value != "" && strings.Contains(queryLower, strings.ToLower(value)) {
				return StrategyDeepDive
			}
		}
	}
	for _, word := range comparisonWords {
		if strings.Contains(queryLower, word) {
			return StrategyComparison
		}
	}
	return StrategyStandard
}

func enhanceQuery(query string, snapshot Snapshot, strategy Strategy) string {
	switch strategy {
	case StrategyContextualRefinement:
		if len(snapshot.Turns) == 0 {
			return query
		}
		last := snapshot.Turns[len(snapshot.Turns)-1]
		var values []string
		for _, category := range sortedKeys(last.Entities) {
			if forms := last.Entities[category]; len(forms) > 0 {
				values = append(values, forms[0])
			}
		}
		if len(values) == 0 {
			return query
		}
		return "Regarding: " + strings.Join(values, ", ") + " | " + query

	case StrategyContextualExpansion:
		topics := snapshot.TopTopics(3)
		if len(topics) == 0 {
			return query
		}
		return query + " | Context: " + strings.Join(topics, ", ")

	case StrategyDeepDive:
		parts := []string{query}
		if snapshot.CurrentFocus != "" {
			parts = append(parts, "Focus: "+snapshot.CurrentFocus)
		}
		if refs := snapshot.RecentReferences(3); len(refs) > 0 {
			parts = append(parts, "Related to: "+strings.Join(refs, ", "))
		}
		return strings.Join(parts, " | ")

	default:
		return query
	}
}

// seenInTurns reports whether a result ID appeared in any of the last n
// turns' retrieved results.
func seenInTurns(turns []*Turn, n int, resultID string) bool {
	start := len(turns) - n
	if start < 0 {
		start = 0
	}
	for _, turn := range turns[start:] {
		if containsString(turn.ResultIDs, resultID) {
			return true
		}
	}
	return false
}

func containsWord(words []string, targets []string) bool {
	for _, word := range words {
		for _, target := range targets {
			if word == target {
				return true
			}
		}
	}
	return false
}
