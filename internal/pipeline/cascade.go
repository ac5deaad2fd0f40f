// Package pipeline narrows the base sales table through the dashboard
// filters and reduces the result to KPIs and chart views. Every function
// here is pure: inputs are never mutated and nothing is cached between
// calls.
package pipeline

import (
	"slices"

	"superstore-dashboard/internal/models"
)

// All is the selection that applies no predicate at its position.
const All = "All"

// FilterOrder is the fixed order in which categorical filters apply.
var FilterOrder = []models.Column{
	models.ColRegion,
	models.ColState,
	models.ColCategory,
	models.ColSubCategory,
}

type Selection struct {
	Column models.Column `json:"column"`
	Value  string        `json:"value"`
}

// FilterChain holds one selection per position of FilterOrder.
type FilterChain []Selection

// NewFilterChain builds a chain in FilterOrder. Columns missing from values,
// or mapped to an empty string, select All.
func NewFilterChain(values map[models.Column]string) FilterChain {
	chain := make(FilterChain, 0, len(FilterOrder))
	for _, col := range FilterOrder {
		v := values[col]
		if v == "" {
			v = All
		}
		chain = append(chain, Selection{Column: col, Value: v})
	}
	return chain
}

// Value returns the selection for col, or All when the chain has none.
func (c FilterChain) Value(col models.Column) string {
	for _, s := range c {
		if s.Column == col && s.Value != "" {
			return s.Value
		}
	}
	return All
}

// ApplyCascade applies each non-All selection as an equality predicate, in
// FilterOrder, feeding each step's output into the next. A value that does
// not occur simply yields an empty table.
func ApplyCascade(base *models.Table, chain FilterChain) *models.Table {
	current := base
	for _, col := range FilterOrder {
		if v := chain.Value(col); v != All {
			current = current.Filter(equals(col, v))
		}
	}
	if current == nil {
		return models.NewTable(nil)
	}
	return current
}

// OptionsFor returns the sorted distinct non-null values of col in t.
func OptionsFor(col models.Column, t *models.Table) []string {
	seen := make(map[string]struct{})
	opts := make([]string, 0)
	for r := range t.All() {
		v := r.Field(col)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		opts = append(opts, v)
	}
	slices.Sort(opts)
	return opts
}

// Position describes one filter slot after cascading: the options offered
// there and the selection that actually took effect.
type Position struct {
	Column   models.Column `json:"column"`
	Options  []string      `json:"options"`
	Selected string        `json:"selected"`
	Reset    bool          `json:"reset,omitempty"`
}

type CascadeResult struct {
	Table     *models.Table
	Positions []Position
}

// Effective returns the chain that produced Table, with reset positions
// set to All.
func (r CascadeResult) Effective() FilterChain {
	chain := make(FilterChain, 0, len(r.Positions))
	for _, p := range r.Positions {
		chain = append(chain, Selection{Column: p.Column, Value: p.Selected})
	}
	return chain
}

// ResetColumns lists the positions whose requested value was not offered
// and therefore fell back to All.
func (r CascadeResult) ResetColumns() []models.Column {
	var cols []models.Column
	for _, p := range r.Positions {
		if p.Reset {
			cols = append(cols, p.Column)
		}
	}
	return cols
}

// Cascade runs the filter chain and records, for every position, the
// options computed from the table narrowed by the positions before it.
//
// A requested value that is absent from its recomputed option set resets
// to All; a value still offered at its own level is kept even if an
// ancestor changed.
func Cascade(base *models.Table, chain FilterChain) CascadeResult {
	current := base
	if current == nil {
		current = models.NewTable(nil)
	}
	positions := make([]Position, 0, len(FilterOrder))
	for _, col := range FilterOrder {
		opts := OptionsFor(col, current)
		pos := Position{Column: col, Options: opts, Selected: All}

		if want := chain.Value(col); want != All {
			if _, found := slices.BinarySearch(opts, want); found {
				pos.Selected = want
				current = current.Filter(equals(col, want))
			} else {
				pos.Reset = true
			}
		}
		positions = append(positions, pos)
	}
	return CascadeResult{Table: current, Positions: positions}
}

func equals(col models.Column, v string) func(models.Record) bool {
	return func(r models.Record) bool {
		return r.Field(col) == v
	}
}
