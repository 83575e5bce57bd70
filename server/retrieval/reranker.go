package retrieval

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rackguard/rackguard/store"
)

// EnhancedResult is a search result with domain-aware scoring applied.
type EnhancedResult struct {
	Result      *store.SearchResult
	RerankScore float64
	Confidence  float64
}

// termWeight pairs a content term with a multiplicative score adjustment.
// Boosts are >1, penalties <1.
type termWeight struct {
	term   string
	weight float64
}

var (
	contentBoosts = []termWeight{
		{"table", 2.0},
		{"figure", 2.0},
		{"section", 1.5},
		{"requirement", 1.5},
		{"shall", 1.3},
		{"must", 1.3},
		{"minimum", 1.2},
		{"maximum", 1.2},
	}
	contentPenalties = []termWeight{
		{"draft", 0.5},
		{"obsolete", 0.3},
		{"superseded", 0.3},
		{"example", 0.8},
	}
	uncertaintyMarkers = []string{"may", "might", "could", "possibly", "generally"}

	tableFigureRefPattern = regexp.MustCompile(`(?i)(table|figure)\s+[\d\-.]+`)
)

// Reranker rescores search results using regulatory-document signals: exact
// matches, mandatory language, table and figure references, and metadata
// agreement with the query.
type Reranker struct{}

// NewReranker creates a Reranker.
func NewReranker() *Reranker {
	return &Reranker{}
}

// Rerank scores every result against the query and returns them ordered by
// descending rerank score. topK limits the output when positive.
func (r *Reranker) Rerank(query string, results []*store.SearchResult, topK int) []*EnhancedResult {
	queryLower := strings.ToLower(query)
	queryTerms := splitTerms(queryLower)
	queryRefs := dedupeRefs(tableFigureRefPattern.FindAllString(queryLower, -1))

	enhanced := make([]*EnhancedResult, 0, len(results))
	for _, result := range results {
		score := r.score(queryLower, queryTerms, queryRefs, result)
		enhanced = append(enhanced, &EnhancedResult{
			Result:      result,
			RerankScore: score,
			Confidence:  r.confidence(score, result),
		})
	}

	sort.SliceStable(enhanced, func(i, j int) bool {
		return enhanced[i].RerankScore > enhanced[j].RerankScore
	})
	if topK > 0 && len(enhanced) > topK {
		enhanced = enhanced[:topK]
	}
	return enhanced
}

func (r *Reranker) score(queryLower string, queryTerms []string, queryRefs []string, result *store.SearchResult) float64 {
	content := strings.ToLower(result.Content)
	score := result.Similarity

	if queryLower != "" && strings.Contains(content, queryLower) {
		score *= 1.5
	}

	if len(queryTerms) > 0 {
		matched := 0
		for _, term := range queryTerms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		overlap := float64(matched) / float64(len(queryTerms))
		score *= 1 + overlap*0.5
	}

	for _, tw := range contentBoosts {
		if strings.Contains(content, tw.term) {
			score *= tw.weight
		}
	}
	for _, tw := range contentPenalties {
		if strings.Contains(content, tw.term) {
			score *= tw.weight
		}
	}

	// A table or figure the query asks for by number is almost certainly
	// the chunk the user wants. The boost compounds once per distinct
	// reference, not per mention.
	for _, ref := range queryRefs {
		if strings.Contains(content, ref) {
			score *= 2.0
		}
	}

	if result.Metadata != nil {
		if asrs, ok := result.Metadata["asrs_type"].(string); ok && asrs != "" {
			if strings.Contains(queryLower, strings.ToLower(asrs)) {
				score *= 1.3
			}
		}
		if commodity, ok := result.Metadata["commodity_type"].(string); ok && commodity != "" {
			if strings.Contains(queryLower, strings.ToLower(commodity)) {
				score *= 1.2
			}
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (r *Reranker) confidence(rerankScore float64, result *store.SearchResult) float64 {
	content := strings.ToLower(result.Content)
	confidence := rerankScore

	if strings.Contains(content, "shall") || strings.Contains(content, "must") {
		confidence += 0.1
		if confidence > 1.0 {
			confidence = 1.0
		}
	}
	if tableFigureRefPattern.MatchString(content) {
		confidence += 0.05
		if confidence > 1.0 {
			confidence = 1.0
		}
	}
	for _, marker := range uncertaintyMarkers {
		if containsWord(content, marker) {
			confidence *= 0.9
			break
		}
	}
	return confidence
}

func dedupeRefs(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	unique := refs[:0]
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		unique = append(unique, ref)
	}
	return unique
}

func splitTerms(s string) []string {
	fields := strings.Fields(s)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:?!()\"'")
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

func containsWord(text, word string) bool {
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, ".,;:?!()\"'") == word {
			return true
		}
	}
	return false
}
