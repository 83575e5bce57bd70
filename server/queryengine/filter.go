package queryengine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rackguard/rackguard/store"
)

// Slack applied around a parsed dimension so approximate language ("about
// 6ft") still matches nearby records. Asymmetric: regulations usually bound
// from above.
const (
	depthSlackBelow   = 1.0
	depthSlackAbove   = 3.0
	spacingSlackBelow = 0.5
	spacingSlackAbove = 2.5
	ceilingSlackBelow = 5.0
	ceilingSlackAbove = 10.0
)

type dimensionPattern struct {
	pattern *regexp.Regexp
}

// PreFilter compiles metadata filters out of query text to shrink the
// search space before the vector call.
type PreFilter struct {
	depthPatterns   []dimensionPattern
	spacingPatterns []dimensionPattern
	ceilingPatterns []dimensionPattern

	asrsTypes         []keywordGroup
	containerTypes    []keywordGroup
	commodityTypes    []keywordGroup
	protectionSchemes []keywordGroup

	tablePatterns  []*regexp.Regexp
	figurePatterns []*regexp.Regexp
}

type keywordGroup struct {
	canonical string
	keywords  []string
}

// NewPreFilter creates a PreFilter with the domain tables compiled. Keyword
// groups are ordered slices so compiled predicates are stable for a given
// query.
func NewPreFilter() *PreFilter {
	compile := func(patterns ...string) []dimensionPattern {
		out := make([]dimensionPattern, len(patterns))
		for i, p := range patterns {
			out[i] = dimensionPattern{pattern: regexp.MustCompile(p)}
		}
		return out
	}

	return &PreFilter{
		depthPatterns: compile(
			`(?i)(\d+)\s*(?:ft|foot|feet)\s+(?:deep|depth|rack)`,
			`(?i)(?:rack\s+depth|depth)\s+(?:of\s+)?(\d+)\s*(?:ft|foot|feet)`,
			`(?i)(\d+)ft\s+rack`,
		),
		spacingPatterns: compile(
			`(?i)(\d+(?:\.\d+)?)\s*(?:ft|foot|feet)\s+spacing`,
			`(?i)spacing\s+(?:of\s+)?(\d+(?:\.\d+)?)\s*(?:ft|foot|feet)`,
			`(?i)(\d+(?:\.\d+)?)\s*ft\s+(?:horizontal|between)`,
		),
		ceilingPatterns: compile(
			`(?i)(\d+)\s*(?:ft|foot|feet)\s+(?:ceiling|height)`,
			`(?i)ceiling\s+(?:height\s+)?(?:of\s+)?(\d+)\s*(?:ft|foot|feet)`,
		),
		asrsTypes: []keywordGroup{
			{canonical: "shuttle", keywords: []string{"shuttle", "shuttle asrs", "shuttle system"}},
			{canonical: "mini_load", keywords: []string{"mini-load", "miniload", "mini load", "tote"}},
			{canonical: "top_loading", keywords: []string{"top-loading", "top loading", "vertical loading"}},
		},
		containerTypes: []keywordGroup{
			{canonical: "closed_top", keywords: []string{"closed-top", "closed top", "sealed", "covered"}},
			{canonical: "open_top", keywords: []string{"open-top", "open top", "uncovered", "exposed"}},
		},
		commodityTypes: []keywordGroup{
			{canonical: "plastic", keywords: []string{"plastic", "plastics", "polymer", "synthetic"}},
			{canonical: "cartoned", keywords: []string{"cartoned", "boxed", "carton"}},
			{canonical: "uncartoned", keywords: []string{"uncartoned", "unboxed", "exposed"}},
			{canonical: "class 1", keywords: []string{"class 1", "class i", "low hazard"}},
			{canonical: "class 2", keywords: []string{"class 2", "class ii", "moderate hazard"}},
			{canonical: "class 3", keywords: []string{"class 3", "class iii", "high hazard"}},
			{canonical: "class 4", keywords: []string{"class 4", "class iv", "very high hazard"}},
		},
		protectionSchemes: []keywordGroup{
			{canonical: "wet", keywords: []string{"wet pipe", "wet system", "water-filled"}},
			{canonical: "dry", keywords: []string{"dry pipe", "dry system", "air-filled"}},
			{canonical: "pre-action", keywords: []string{"pre-action", "preaction"}},
			{canonical: "deluge", keywords: []string{"deluge", "open sprinkler"}},
			{canonical: "in-rack", keywords: []string{"in-rack", "iras", "in rack"}},
		},
		tablePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)table\s+([\d\-.]+)`),
		},
		figurePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)figure\s+([\d\-.]+)`),
			regexp.MustCompile(`(?i)fig\.\s*([\d\-.]+)`),
		},
	}
}

// ExtractFilters derives a FilterCriteria from a query. A dimension that
// parses to an invalid range is dropped rather than failing the whole
// filter object.
func (f *PreFilter) ExtractFilters(query string) *store.FilterCriteria {
	queryLower := strings.ToLower(query)
	filters := &store.FilterCriteria{}

	filters.ASRSTypes = f.matchGroups(f.asrsTypes, queryLower)
	// A bare "asrs" mention matches every system type.
	if len(filters.ASRSTypes) == 0 && strings.Contains(queryLower, "asrs") {
		filters.ASRSTypes = []string{"shuttle", "mini_load", "all"}
	}

	filters.ContainerTypes = f.matchGroups(f.containerTypes, queryLower)

	if depth, ok := extractDimension(f.depthPatterns, query); ok {
		filters.RackDepthRange = buildRange(depth, depthSlackBelow, depthSlackAbove)
	}
	if spacing, ok := extractDimension(f.spacingPatterns, query); ok {
		filters.SpacingRange = buildRange(spacing, spacingSlackBelow, spacingSlackAbove)
	}
	if height, ok := extractDimension(f.ceilingPatterns, query); ok {
		filters.CeilingHeightRange = buildRange(height, ceilingSlackBelow, ceilingSlackAbove)
	}

	for _, pattern := range f.tablePatterns {
		for _, match := range pattern.FindAllStringSubmatch(query, -1) {
			filters.TableNumbers = append(filters.TableNumbers, "Table "+match[1])
		}
	}
	for _, pattern := range f.figurePatterns {
		for _, match := range pattern.FindAllStringSubmatch(query, -1) {
			filters.FigureNumbers = append(filters.FigureNumbers, "Figure "+match[1])
		}
	}

	filters.CommodityTypes = f.matchGroups(f.commodityTypes, queryLower)
	filters.ProtectionSchemes = f.matchGroups(f.protectionSchemes, queryLower)

	// Source type preference when the query names a presentation form.
	if strings.Contains(queryLower, "table") {
		filters.SourceTypes = []string{"table"}
	} else if containsAny(queryLower, []string{"figure", "diagram"}) {
		filters.SourceTypes = []string{"figure"}
	}

	return filters
}

// OptimizedQuery augments the query text with filter context to sharpen the
// embedding.
func (f *PreFilter) OptimizedQuery(query string, filters *store.FilterCriteria) string {
	parts := []string{query}

	if len(filters.ASRSTypes) > 0 {
		parts = append(parts, "ASRS type: "+strings.Join(filters.ASRSTypes, ", "))
	}
	if len(filters.ContainerTypes) > 0 {
		parts = append(parts, "Container: "+strings.Join(filters.ContainerTypes, ", "))
	}
	if r := filters.RackDepthRange; r != nil {
		parts = append(parts, "Rack depth: "+formatFloat(r.Min)+"-"+formatFloat(r.Max)+"ft")
	}
	if len(filters.CommodityTypes) > 0 {
		parts = append(parts, "Commodity: "+strings.Join(filters.CommodityTypes, ", "))
	}

	return strings.Join(parts, " | ")
}

func (f *PreFilter) matchGroups(groups []keywordGroup, queryLower string) []string {
	var found []string
	for _, group := range groups {
		if containsAny(queryLower, group.keywords) {
			found = append(found, group.canonical)
		}
	}
	return found
}

// extractDimension tries each pattern in order; first parseable match wins.
func extractDimension(patterns []dimensionPattern, query string) (float64, bool) {
	for _, p := range patterns {
		match := p.pattern.FindStringSubmatch(query)
		if len(match) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return value, true
	}
	return 0, false
}

// buildRange widens a parsed value by the asymmetric slack. Returns nil when
// the resulting range is invalid, dropping the constraint.
func buildRange(value, slackBelow, slackAbove float64) *store.Range {
	r := store.Range{Min: value - slackBelow, Max: value + slackAbove}
	if !r.Valid() {
		return nil
	}
	return &r
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
