package queryengine

import (
	"regexp"
	"strings"
)

// Router classifies queries and selects search strategies. Stateless per
// call; classification checks run in a fixed priority order and the first
// match wins.
type Router struct {
	referencePatterns   []*regexp.Regexp
	measurementPatterns []*regexp.Regexp
	acronymPattern      *regexp.Regexp

	technicalTerms        map[string][]string
	costKeywords          []string
	complianceKeywords    []string
	comparisonKeywords    []string
	interrogativeKeywords []string
}

// Analysis describes the observable characteristics of a query.
type Analysis struct {
	QueryType        QueryType
	HasReference     bool
	HasMeasurements  bool
	TechnicalDensity float64
	WordCount        int
	References       []string
	DomainEntities   Entities
	IsCostFocused    bool
	IsCompliance     bool
}

// NewRouter creates a Router with the curated domain tables compiled.
func NewRouter() *Router {
	referencePatterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)table\s+[\d\-.]+`),
		regexp.MustCompile(`(?i)figure\s+[\d\-.]+`),
		regexp.MustCompile(`(?i)section\s+[\d\-.]+`),
		regexp.MustCompile(`(?i)clause\s+[\d\-.]+`),
		regexp.MustCompile(`(?i)appendix\s+[a-zA-Z]`),
	}
	measurementPatterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s*(?:ft|feet|m|meters|in|inches)`),
		regexp.MustCompile(`(?i)\d+\s*(?:psi|bar|kpa)`),
		regexp.MustCompile(`(?i)\d+\s*(?:gpm|lpm)`),
		regexp.MustCompile(`\d+°[CF]`),
		regexp.MustCompile(`\d+\s*%`),
	}

	return &Router{
		referencePatterns:   referencePatterns,
		measurementPatterns: measurementPatterns,
		acronymPattern:      regexp.MustCompile(`\b[A-Z]{2,}\b`),
		technicalTerms: map[string][]string{
			"sprinkler":  {"k-factor", "orifice", "deflector", "esfr", "cmsa"},
			"rack":       {"single-row", "double-row", "multi-row", "portable"},
			"storage":    {"class", "commodity", "plastic", "cartoned", "uncartoned"},
			"protection": {"wet", "dry", "pre-action", "deluge", "foam-water"},
			"asrs":       {"shuttle", "mini-load", "crane", "stacker"},
			"clearance":  {"flue", "transverse", "longitudinal", "vertical"},
			"spacing":    {"maximum", "minimum", "standard", "extended"},
		},
		costKeywords: []string{
			"cost", "price", "budget", "economical", "savings",
			"optimize", "reduce", "minimize", "efficient", "alternative",
		},
		complianceKeywords: []string{
			"comply", "compliant", "meet", "satisfy", "requirement",
			"standard", "code", "regulation", "allowed", "permitted",
		},
		comparisonKeywords:    []string{"vs", "versus", "compare", "difference"},
		interrogativeKeywords: []string{"how", "why", "what", "when", "explain", "describe", "understand"},
	}
}

// Analyze determines the characteristics of a query without side effects.
func (r *Router) Analyze(query string) *Analysis {
	queryLower := strings.ToLower(query)
	references := r.extractReferences(query)
	measurements := r.extractMeasurements(query)

	return &Analysis{
		QueryType:        r.determineQueryType(query, queryLower),
		HasReference:     len(references) > 0,
		HasMeasurements:  len(measurements) > 0,
		TechnicalDensity: r.technicalDensity(queryLower),
		WordCount:        len(strings.Fields(query)),
		References:       references,
		DomainEntities:   r.extractDomainEntities(queryLower),
		IsCostFocused:    containsAny(queryLower, r.costKeywords),
		IsCompliance:     containsAny(queryLower, r.complianceKeywords),
	}
}

// Route selects the search strategy and parameters for a query.
func (r *Router) Route(query string) (SearchStrategy, SearchParams) {
	analysis := r.Analyze(query)
	return r.RouteAnalysis(analysis)
}

// RouteAnalysis resolves strategy and parameters from a prior analysis.
func (r *Router) RouteAnalysis(analysis *Analysis) (SearchStrategy, SearchParams) {
	switch analysis.QueryType {
	case QueryTypeSpecificReference:
		// Exact references need heavy lexical matching.
		return StrategyHybridTextHeavy, SearchParams{
			TextWeight: 0.7,
			MatchCount: 15,
			References: analysis.References,
		}

	case QueryTypeCompliance:
		return StrategyHybrid, SearchParams{
			TextWeight:            0.6,
			MatchCount:            10,
			RequireHighConfidence: true,
		}

	case QueryTypeCostOptimization:
		return StrategyMultiStage, SearchParams{
			InitialCount:        25,
			RerankCount:         15,
			IncludeAlternatives: true,
		}

	case QueryTypeTechnicalSpec:
		return StrategyHybrid, SearchParams{
			TextWeight:     0.5,
			MatchCount:     12,
			BoostTechnical: true,
		}

	default:
		// Comparison queries carry no strategy of their own; they route
		// through the same density branch as conceptual queries.
		if analysis.WordCount > 10 {
			return StrategyMultiStage, SearchParams{
				InitialCount:      30,
				RerankCount:       10,
				UseQueryExpansion: true,
			}
		}
		return StrategySemantic, SearchParams{
			MatchCount:          10,
			SimilarityThreshold: 0.7,
		}
	}
}

// determineQueryType classifies in fixed priority order, first match wins.
func (r *Router) determineQueryType(query, queryLower string) QueryType {
	switch {
	case r.hasReference(query):
		return QueryTypeSpecificReference
	case containsAny(queryLower, r.complianceKeywords):
		return QueryTypeCompliance
	case containsAny(queryLower, r.costKeywords):
		return QueryTypeCostOptimization
	case containsAny(queryLower, r.comparisonKeywords):
		return QueryTypeComparison
	case len(r.extractMeasurements(query)) > 0 || r.technicalDensity(queryLower) > 0.4:
		return QueryTypeTechnicalSpec
	default:
		return QueryTypeConceptual
	}
}

func (r *Router) hasReference(query string) bool {
	for _, pattern := range r.referencePatterns {
		if pattern.MatchString(query) {
			return true
		}
	}
	return false
}

func (r *Router) extractReferences(query string) []string {
	var references []string
	for _, pattern := range r.referencePatterns {
		references = append(references, pattern.FindAllString(query, -1)...)
	}
	return references
}

func (r *Router) extractMeasurements(query string) []string {
	var measurements []string
	for _, pattern := range r.measurementPatterns {
		measurements = append(measurements, pattern.FindAllString(query, -1)...)
	}
	return measurements
}

// technicalDensity is the fraction of query words matching any curated
// technical-term category. Zero for an empty query.
func (r *Router) technicalDensity(queryLower string) float64 {
	words := strings.Fields(queryLower)
	if len(words) == 0 {
		return 0
	}

	technicalCount := 0
	for _, word := range words {
		if r.isTechnicalWord(word) {
			technicalCount++
		}
	}
	return float64(technicalCount) / float64(len(words))
}

func (r *Router) isTechnicalWord(word string) bool {
	for _, terms := range r.technicalTerms {
		for _, term := range terms {
			if word == term || strings.Contains(word, term) {
				return true
			}
		}
	}
	return false
}

func (r *Router) extractDomainEntities(queryLower string) Entities {
	entities := Entities{}
	for category, terms := range r.technicalTerms {
		var found []string
		for _, term := range terms {
			if strings.Contains(queryLower, term) {
				found = append(found, term)
			}
		}
		if len(found) > 0 {
			entities[category] = found
		}
	}
	return entities
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
