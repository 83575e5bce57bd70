// Package queryengine decides how a raw query should be searched: it
// classifies the query, picks a search strategy with resolved parameters,
// extracts domain entities, compiles metadata filters, and produces ranked
// query variants.
package queryengine

// SearchStrategy selects executor behavior.
type SearchStrategy string

const (
	StrategySemantic        SearchStrategy = "semantic"
	StrategyHybrid          SearchStrategy = "hybrid"
	StrategyHybridTextHeavy SearchStrategy = "hybrid_text_heavy"
	StrategyMultiStage      SearchStrategy = "multi_stage"
)

// QueryType classifies the intent of a query. Used only to pick a strategy,
// never persisted.
type QueryType string

const (
	QueryTypeSpecificReference QueryType = "specific_reference"
	QueryTypeConceptual        QueryType = "conceptual"
	QueryTypeTechnicalSpec     QueryType = "technical_spec"
	QueryTypeCompliance        QueryType = "compliance"
	QueryTypeCostOptimization  QueryType = "cost_optimization"
	QueryTypeComparison        QueryType = "comparison"
)

// SearchParams are the resolved parameters for a routed query. Zero fields
// mean "not applicable for this strategy".
type SearchParams struct {
	// TextWeight is the lexical share for hybrid strategies.
	TextWeight float64
	// MatchCount is the result count for single-pass strategies.
	MatchCount int
	// InitialCount and RerankCount drive the multi-stage strategy.
	InitialCount int
	RerankCount  int
	// SimilarityThreshold applies to semantic-only search.
	SimilarityThreshold float64

	UseQueryExpansion     bool
	BoostTechnical        bool
	RequireHighConfidence bool
	IncludeAlternatives   bool

	// References holds the document references that seeded the routing
	// decision, when the query named any.
	References []string
}
