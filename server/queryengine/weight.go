package queryengine

import "strings"

// DefaultBaseTextWeight is the starting point for adaptive weighting.
const DefaultBaseTextWeight = 0.3

// AdaptiveTextWeight computes a continuous text-vs-semantic weight in [0, 1]
// from query surface features. Short, reference-laden, acronym-heavy queries
// lean lexical; interrogative queries lean semantic.
func (r *Router) AdaptiveTextWeight(query string, baseWeight float64) float64 {
	weight := baseWeight
	queryLower := strings.ToLower(query)

	if r.hasReference(query) {
		weight += 0.4
	}

	if measurements := r.extractMeasurements(query); len(measurements) > 0 {
		weight += 0.1 * float64(minInt(len(measurements), 3))
	}

	wordCount := len(strings.Fields(query))
	if wordCount <= 3 {
		weight += 0.2
	} else if wordCount <= 5 {
		weight += 0.1
	}

	if acronyms := r.acronymPattern.FindAllString(query, -1); len(acronyms) > 0 {
		weight += 0.1 * float64(minInt(len(acronyms), 2))
	}

	if containsAny(queryLower, r.interrogativeKeywords) {
		weight -= 0.1
	}

	if weight < 0 {
		return 0
	}
	if weight > 1 {
		return 1
	}
	return weight
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
