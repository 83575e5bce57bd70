package queryengine

import (
	"regexp"
	"strings"
)

// maxVariants bounds the expansion output, original included.
const maxVariants = 5

// Expander produces ranked variants of a query to broaden recall. Expansion
// is a pure function of the input text and the static domain tables.
type Expander struct {
	acronyms      []acronymExpansion
	synonyms      []synonymMapping
	questionWords []string
}

type acronymExpansion struct {
	acronym  string
	fullForm string
	pattern  *regexp.Regexp
}

type synonymMapping struct {
	term     string
	synonyms []string
}

// NewExpander creates an Expander with the domain tables compiled. The
// tables are ordered slices so expansion output is stable run to run.
func NewExpander() *Expander {
	acronymTable := []acronymExpansion{
		{acronym: "asrs", fullForm: "automated storage retrieval system"},
		{acronym: "esfr", fullForm: "early suppression fast response"},
		{acronym: "cmsa", fullForm: "control mode specific application"},
		{acronym: "iras", fullForm: "in-rack sprinkler"},
		{acronym: "rdd", fullForm: "rack depth dimension"},
		{acronym: "fmg", fullForm: "fm global"},
		{acronym: "vfc", fullForm: "vertical flue clearance"},
		{acronym: "hfc", fullForm: "horizontal flue clearance"},
	}
	for i := range acronymTable {
		acronymTable[i].pattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(acronymTable[i].acronym) + `\b`)
	}

	return &Expander{
		acronyms: acronymTable,
		synonyms: []synonymMapping{
			{term: "sprinkler", synonyms: []string{"sprinkler head", "spray nozzle", "fire suppression"}},
			{term: "rack", synonyms: []string{"storage rack", "pallet rack", "shelving"}},
			{term: "clearance", synonyms: []string{"spacing", "distance", "gap", "separation"}},
			{term: "commodity", synonyms: []string{"material", "product", "goods", "inventory"}},
			{term: "protection", synonyms: []string{"fire protection", "suppression", "safety system"}},
			{term: "wet system", synonyms: []string{"wet pipe", "water-filled pipe"}},
			{term: "dry system", synonyms: []string{"dry pipe", "air-filled pipe"}},
			{term: "shuttle", synonyms: []string{"shuttle system", "shuttle asrs", "horizontal shuttle"}},
			{term: "mini-load", synonyms: []string{"miniload", "mini load asrs", "tote storage"}},
		},
		questionWords: []string{"what", "how", "when", "where", "which", "why"},
	}
}

// Expand returns an ordered, case-insensitively deduplicated list of at most
// five variants, the original always first.
func (e *Expander) Expand(query string) []string {
	variants := []string{query}
	queryLower := strings.ToLower(query)

	// Acronym expansion keeps both surface forms searchable.
	if expanded := e.expandAcronyms(queryLower); expanded != queryLower {
		variants = append(variants, expanded)
	}

	synonymVariants := e.synonymVariations(queryLower)
	if len(synonymVariants) > 2 {
		synonymVariants = synonymVariants[:2]
	}
	variants = append(variants, synonymVariants...)

	if contextual := e.addDomainContext(query); contextual != query {
		variants = append(variants, contextual)
	}

	if len(strings.Fields(query)) > 8 {
		subQueries := e.subQueries(query)
		if len(subQueries) > 2 {
			subQueries = subQueries[:2]
		}
		variants = append(variants, subQueries...)
	}

	return dedupeVariants(variants)
}

// expandAcronyms replaces whole-word acronym matches with "acronym full
// form", leaving the acronym in place.
func (e *Expander) expandAcronyms(query string) string {
	expanded := query
	for _, entry := range e.acronyms {
		entry := entry
		expanded = entry.pattern.ReplaceAllStringFunc(expanded, func(match string) string {
			return match + " " + entry.fullForm
		})
	}
	return expanded
}

// synonymVariations substitutes each present domain term with its first
// synonym, one variant per term.
func (e *Expander) synonymVariations(query string) []string {
	var variants []string
	for _, mapping := range e.synonyms {
		if strings.Contains(query, mapping.term) {
			variant := strings.ReplaceAll(query, mapping.term, mapping.synonyms[0])
			if variant != query {
				variants = append(variants, variant)
			}
		}
	}
	return variants
}

// addDomainContext anchors queries that lack an FM-Global-identifying term.
func (e *Expander) addDomainContext(query string) string {
	queryLower := strings.ToLower(query)
	if containsAny(queryLower, []string{"fm global", "fm 8-34", "fmg"}) {
		return query
	}
	if containsAny(queryLower, []string{"requirement", "standard", "code"}) {
		return "FM Global 8-34 " + query
	}
	if containsAny(queryLower, []string{"sprinkler", "protection", "asrs"}) {
		return query + " FM Global requirements"
	}
	return query
}

// subQueries breaks a long query into focused fragments.
func (e *Expander) subQueries(query string) []string {
	var subQueries []string

	if strings.Contains(strings.ToLower(query), "and") {
		for _, part := range strings.Split(query, " and ") {
			if part != "" {
				subQueries = append(subQueries, part)
			}
		}
	}

	queryLower := strings.ToLower(query)
	for _, word := range e.questionWords {
		if strings.Contains(queryLower, word) {
			pattern := regexp.MustCompile(`(?i)` + word + `[^.?!]*[.?!]?`)
			subQueries = append(subQueries, pattern.FindAllString(query, -1)...)
			break
		}
	}

	return subQueries
}

func dedupeVariants(variants []string) []string {
	seen := make(map[string]struct{}, len(variants))
	unique := make([]string, 0, len(variants))
	for _, v := range variants {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, v)
		if len(unique) == maxVariants {
			break
		}
	}
	return unique
}
