package store

import (
	"fmt"
	"math"
	"strings"
)

// Range is an inclusive numeric range in feet.
type Range struct {
	Min float64
	Max float64
}

// Valid reports whether the range is finite, non-negative and ordered.
func (r Range) Valid() bool {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return false
	}
	return r.Min >= 0 && r.Max >= r.Min
}

// FilterCriteria holds optional constraints derived from a query. Every
// populated field narrows the candidate set; the zero value matches
// everything. Constructed per query and discarded after the search call.
type FilterCriteria struct {
	ASRSTypes          []string
	ContainerTypes     []string
	RackDepthRange     *Range
	SpacingRange       *Range
	CeilingHeightRange *Range
	TableNumbers       []string
	FigureNumbers      []string
	CommodityTypes     []string
	ProtectionSchemes  []string
	SourceTypes        []string
}

// ReductionFactors are the estimated remaining fractions per filter type.
// Hand-tuned planning heuristics, not measured selectivities; they feed
// logging and search-size tuning only.
var ReductionFactors = struct {
	ASRSType      float64
	ContainerType float64
	RackDepth     float64
	Spacing       float64
	CeilingHeight float64
	Reference     float64
	Commodity     float64
	Protection    float64
	SourceType    float64
}{
	ASRSType:      0.33,
	ContainerType: 0.5,
	RackDepth:     0.25,
	Spacing:       0.3,
	CeilingHeight: 0.3,
	Reference:     0.1,
	Commodity:     0.2,
	Protection:    0.25,
	SourceType:    0.4,
}

// IsEmpty reports whether no constraint is set.
func (f *FilterCriteria) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.ASRSTypes) == 0 &&
		len(f.ContainerTypes) == 0 &&
		f.RackDepthRange == nil &&
		f.SpacingRange == nil &&
		f.CeilingHeightRange == nil &&
		len(f.TableNumbers) == 0 &&
		len(f.FigureNumbers) == 0 &&
		len(f.CommodityTypes) == 0 &&
		len(f.ProtectionSchemes) == 0 &&
		len(f.SourceTypes) == 0
}

// EstimateReduction returns the estimated fractional search-space reduction
// in [0, 1). An empty criteria yields 0.
func (f *FilterCriteria) EstimateReduction() float64 {
	if f.IsEmpty() {
		return 0
	}
	remaining := 1.0
	if len(f.ASRSTypes) > 0 {
		remaining *= ReductionFactors.ASRSType
	}
	if len(f.ContainerTypes) > 0 {
		remaining *= ReductionFactors.ContainerType
	}
	if f.RackDepthRange != nil {
		remaining *= ReductionFactors.RackDepth
	}
	if f.SpacingRange != nil {
		remaining *= ReductionFactors.Spacing
	}
	if f.CeilingHeightRange != nil {
		remaining *= ReductionFactors.CeilingHeight
	}
	if len(f.TableNumbers) > 0 || len(f.FigureNumbers) > 0 {
		remaining *= ReductionFactors.Reference
	}
	if len(f.CommodityTypes) > 0 {
		remaining *= ReductionFactors.Commodity
	}
	if len(f.ProtectionSchemes) > 0 {
		remaining *= ReductionFactors.Protection
	}
	if len(f.SourceTypes) > 0 {
		remaining *= ReductionFactors.SourceType
	}
	return 1.0 - remaining
}

// Conditions compiles the populated fields into a parameterized WHERE
// fragment. Placeholders start at $startIndex. Field order is fixed so the
// compiled predicate is stable for a given criteria.
func (f *FilterCriteria) Conditions(startIndex int) (string, []any) {
	if f.IsEmpty() {
		return "", nil
	}

	var (
		conds []string
		args  []any
	)
	next := func() int { return startIndex + len(args) }

	inClause := func(column string, values []string) {
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = fmt.Sprintf("$%d", next())
			args = append(args, v)
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	}
	rangeClause := func(column string, r *Range) {
		conds = append(conds, fmt.Sprintf("%s >= $%d AND %s <= $%d", column, next(), column, next()+1))
		args = append(args, r.Min, r.Max)
	}

	if len(f.ASRSTypes) > 0 {
		inClause("asrs_type", f.ASRSTypes)
	}
	if len(f.ContainerTypes) > 0 {
		inClause("container_type", f.ContainerTypes)
	}
	if f.RackDepthRange != nil {
		rangeClause("max_depth_ft", f.RackDepthRange)
	}
	if f.SpacingRange != nil {
		rangeClause("max_spacing_ft", f.SpacingRange)
	}
	if f.CeilingHeightRange != nil {
		// A record matches when its height band overlaps the requested range.
		conds = append(conds, fmt.Sprintf("ceiling_height_min_ft <= $%d AND ceiling_height_max_ft >= $%d", next(), next()+1))
		args = append(args, f.CeilingHeightRange.Max, f.CeilingHeightRange.Min)
	}
	if len(f.TableNumbers) > 0 {
		inClause("table_number", f.TableNumbers)
	}
	if len(f.FigureNumbers) > 0 {
		inClause("figure_number", f.FigureNumbers)
	}
	if len(f.CommodityTypes) > 0 {
		var likes []string
		for _, c := range f.CommodityTypes {
			likes = append(likes, fmt.Sprintf("commodity_types ILIKE $%d", next()))
			args = append(args, "%"+c+"%")
		}
		conds = append(conds, "("+strings.Join(likes, " OR ")+")")
	}
	if len(f.ProtectionSchemes) > 0 {
		inClause("protection_scheme", f.ProtectionSchemes)
	}
	if len(f.SourceTypes) > 0 {
		inClause("source_type", f.SourceTypes)
	}

	return strings.Join(conds, " AND "), args
}
