package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackguard/rackguard/store"
)

func TestExtractFilters(t *testing.T) {
	prefilter := NewPreFilter()

	t.Run("asrs and container types", func(t *testing.T) {
		filters := prefilter.ExtractFilters("shuttle system with closed top containers")

		assert.Equal(t, []string{"shuttle"}, filters.ASRSTypes)
		assert.Equal(t, []string{"closed_top"}, filters.ContainerTypes)
	})

	t.Run("bare asrs mention matches all types", func(t *testing.T) {
		filters := prefilter.ExtractFilters("asrs sprinkler layout")

		assert.Equal(t, []string{"shuttle", "mini_load", "all"}, filters.ASRSTypes)
	})

	t.Run("rack depth range has asymmetric slack", func(t *testing.T) {
		filters := prefilter.ExtractFilters("protection for a 6 ft deep rack")

		require.NotNil(t, filters.RackDepthRange)
		assert.Equal(t, 5.0, filters.RackDepthRange.Min)
		assert.Equal(t, 9.0, filters.RackDepthRange.Max)
	})

	t.Run("spacing range", func(t *testing.T) {
		filters := prefilter.ExtractFilters("sprinklers at 4.5 ft spacing")

		require.NotNil(t, filters.SpacingRange)
		assert.Equal(t, 4.0, filters.SpacingRange.Min)
		assert.Equal(t, 7.0, filters.SpacingRange.Max)
	})

	t.Run("ceiling height range", func(t *testing.T) {
		filters := prefilter.ExtractFilters("30 ft ceiling warehouse")

		require.NotNil(t, filters.CeilingHeightRange)
		assert.Equal(t, 25.0, filters.CeilingHeightRange.Min)
		assert.Equal(t, 40.0, filters.CeilingHeightRange.Max)
	})

	t.Run("invalid dimension range is dropped", func(t *testing.T) {
		// 0.5 - slack goes negative, so the constraint must vanish
		// instead of producing a nonsense predicate.
		filters := prefilter.ExtractFilters("sprinklers every 0.3 ft spacing")

		assert.Nil(t, filters.SpacingRange)
	})

	t.Run("references seed table and figure filters", func(t *testing.T) {
		filters := prefilter.ExtractFilters("compare Table 2-1 and Fig. 4.2")

		assert.Equal(t, []string{"Table 2-1"}, filters.TableNumbers)
		assert.Equal(t, []string{"Figure 4.2"}, filters.FigureNumbers)
		assert.Equal(t, []string{"table"}, filters.SourceTypes)
	})

	t.Run("commodity and protection", func(t *testing.T) {
		filters := prefilter.ExtractFilters("wet pipe protection for cartoned plastics")

		assert.Equal(t, []string{"plastic", "cartoned"}, filters.CommodityTypes)
		assert.Equal(t, []string{"wet"}, filters.ProtectionSchemes)
	})

	t.Run("no entities yields empty criteria", func(t *testing.T) {
		filters := prefilter.ExtractFilters("general overview please")

		assert.True(t, filters.IsEmpty())
	})
}

func TestEstimateReductionBounds(t *testing.T) {
	prefilter := NewPreFilter()

	queries := []string{
		"general overview please",
		"shuttle asrs with closed top containers",
		"Table 2-1 for cartoned plastic at 6 ft deep rack with wet pipe protection",
		"30 ft ceiling",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			filters := prefilter.ExtractFilters(query)
			reduction := filters.EstimateReduction()

			assert.GreaterOrEqual(t, reduction, 0.0)
			assert.Less(t, reduction, 1.0)
			if filters.IsEmpty() {
				assert.Zero(t, reduction)
			} else {
				assert.Greater(t, reduction, 0.0)
			}
		})
	}
}

func TestFilterConditionsStableOrder(t *testing.T) {
	criteria := &store.FilterCriteria{
		ASRSTypes:      []string{"shuttle"},
		RackDepthRange: &store.Range{Min: 5, Max: 9},
		TableNumbers:   []string{"Table 2-1"},
	}

	firstClause, firstArgs := criteria.Conditions(1)
	for i := 0; i < 3; i++ {
		clause, args := criteria.Conditions(1)
		assert.Equal(t, firstClause, clause)
		assert.Equal(t, firstArgs, args)
	}

	assert.Contains(t, firstClause, "asrs_type IN ($1)")
	assert.Contains(t, firstClause, "max_depth_ft >= $2 AND max_depth_ft <= $3")
	assert.Contains(t, firstClause, "table_number IN ($4)")
	assert.Equal(t, []any{"shuttle", 5.0, 9.0, "Table 2-1"}, firstArgs)
}

func TestOptimizedQuery(t *testing.T) {
	prefilter := NewPreFilter()

	filters := prefilter.ExtractFilters("shuttle rack 6 ft deep for cartoned goods")
	optimized := prefilter.OptimizedQuery("shuttle rack 6 ft deep for cartoned goods", filters)

	assert.Contains(t, optimized, "shuttle rack 6 ft deep for cartoned goods")
	assert.Contains(t, optimized, "ASRS type: shuttle")
	assert.Contains(t, optimized, "Rack depth: 5-9ft")
	assert.Contains(t, optimized, "Commodity: cartoned")
}
