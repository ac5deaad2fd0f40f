package pipeline

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"superstore-dashboard/internal/models"
)

// Benchmark is the mean sales value per row of the unfiltered base table.
func Benchmark(base *models.Table) float64 {
	if base.Empty() {
		return 0
	}
	var total decimal.Decimal
	for r := range base.All() {
		total = total.Add(decimal.NewFromFloat(r.Sales))
	}
	return total.Div(decimal.NewFromInt(int64(base.Len()))).InexactFloat64()
}

// Heatmap sums sales per (category, sub-category), sorted by category then
// sub-category. Rows missing either key are left out.
func Heatmap(t *models.Table) []models.HeatmapCell {
	type key struct{ category, subCategory string }
	groups := make(map[key]decimal.Decimal)
	for r := range t.All() {
		if r.Category == "" || r.SubCategory == "" {
			continue
		}
		k := key{r.Category, r.SubCategory}
		groups[k] = groups[k].Add(decimal.NewFromFloat(r.Sales))
	}

	cells := make([]models.HeatmapCell, 0, len(groups))
	for k, sales := range groups {
		cells = append(cells, models.HeatmapCell{
			Category:    k.category,
			SubCategory: k.subCategory,
			Sales:       sales.InexactFloat64(),
		})
	}
	slices.SortFunc(cells, func(a, b models.HeatmapCell) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.SubCategory, b.SubCategory),
		)
	})
	return cells
}
