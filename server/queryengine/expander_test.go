package queryengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandBounds(t *testing.T) {
	expander := NewExpander()

	queries := []string{
		"",
		"shuttle",
		"ASRS sprinkler clearance requirement",
		"what is the minimum spacing for esfr sprinklers and how deep can the rack be",
		"wet system versus dry system protection for cartoned plastic commodity storage",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			variants := expander.Expand(query)

			require.NotEmpty(t, variants)
			assert.LessOrEqual(t, len(variants), 5)
			assert.Equal(t, query, variants[0], "original must come first")

			seen := map[string]bool{}
			for _, v := range variants {
				key := strings.ToLower(v)
				assert.False(t, seen[key], "variant %q duplicated", v)
				seen[key] = true
			}
		})
	}
}

func TestExpandAcronyms(t *testing.T) {
	expander := NewExpander()

	variants := expander.Expand("esfr coverage")

	require.GreaterOrEqual(t, len(variants), 2)
	expanded := variants[1]
	assert.Contains(t, expanded, "esfr", "acronym must stay searchable")
	assert.Contains(t, expanded, "early suppression fast response")
}

func TestExpandSynonyms(t *testing.T) {
	expander := NewExpander()

	variants := expander.Expand("rack clearance")

	var found bool
	for _, v := range variants {
		if strings.Contains(v, "storage rack") {
			found = true
		}
	}
	assert.True(t, found, "first synonym of rack should appear in a variant")
}

func TestExpandDomainContext(t *testing.T) {
	expander := NewExpander()

	t.Run("requirement queries get a prefix", func(t *testing.T) {
		variants := expander.Expand("aisle width requirement")
		assert.Contains(t, variants, "FM Global 8-34 aisle width requirement")
	})

	t.Run("protection queries get a suffix", func(t *testing.T) {
		variants := expander.Expand("deluge protection")
		var found bool
		for _, v := range variants {
			if strings.HasSuffix(v, "FM Global requirements") {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("already anchored queries unchanged", func(t *testing.T) {
		variants := expander.Expand("FM Global aisle width requirement")
		for _, v := range variants {
			assert.NotContains(t, v, "FM Global 8-34 FM Global")
		}
	})
}

func TestExpandSubQueries(t *testing.T) {
	expander := NewExpander()

	query := "what is the flue clearance for shuttle systems and which commodity classes does it cover"
	variants := expander.Expand(query)

	// Long conjunctive question should yield a decomposed fragment.
	var hasFragment bool
	for _, v := range variants[1:] {
		if len(v) < len(query) && v != query {
			hasFragment = true
		}
	}
	assert.True(t, hasFragment)
}
