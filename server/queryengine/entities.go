package queryengine

import (
	"regexp"
	"strings"
)

// Entity categories returned by ExtractEntities.
const (
	CategoryASRSType    = "asrs_type"
	CategoryContainer   = "container"
	CategoryCommodity   = "commodity"
	CategoryMeasurement = "measurement"
	CategoryReference   = "reference"
	CategoryProtection  = "protection"
)

// entityCategories is evaluated in this order so the returned map is built
// deterministically. A category with no matches is absent from the result,
// not present with an empty list.
var entityCategories = []string{
	CategoryASRSType,
	CategoryContainer,
	CategoryCommodity,
	CategoryMeasurement,
	CategoryReference,
	CategoryProtection,
}

var entityKeywords = map[string][]string{
	CategoryASRSType:   {"shuttle", "mini-load", "miniload", "top-loading"},
	CategoryContainer:  {"closed-top", "open-top", "closed top", "open top"},
	CategoryCommodity:  {"plastic", "cartoned", "uncartoned", "class"},
	CategoryProtection: {"wet", "dry", "pre-action", "deluge", "in-rack", "iras"},
}

var (
	measurementEntityPattern = regexp.MustCompile(`(?i)\d+\s*(?:ft|m|psi|gpm)`)
	referenceEntityPattern   = regexp.MustCompile(`(?i)(?:table|figure)\s+[\d\-.]+`)
)

// Entities maps an entity category to the surface forms matched in a text.
type Entities map[string][]string

// ExtractEntities pulls domain entities out of free text. Categorical
// entities use case-insensitive substring matching against curated keyword
// lists; measurements and references use pattern matching. Pure function of
// the input.
func ExtractEntities(text string) Entities {
	entities := Entities{}
	textLower := strings.ToLower(text)

	for _, category := range entityCategories {
		var found []string
		switch category {
		case CategoryMeasurement:
			found = measurementEntityPattern.FindAllString(text, -1)
		case CategoryReference:
			found = referenceEntityPattern.FindAllString(text, -1)
		default:
			for _, keyword := range entityKeywords[category] {
				if strings.Contains(textLower, keyword) {
					found = append(found, keyword)
				}
			}
		}
		if len(found) > 0 {
			entities[category] = found
		}
	}

	return entities
}

// First returns the first surface form recorded for a category, or "".
func (e Entities) First(category string) string {
	if forms := e[category]; len(forms) > 0 {
		return forms[0]
	}
	return ""
}
