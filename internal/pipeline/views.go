package pipeline

import (
	"cmp"
	"slices"
	"time"

	"superstore-dashboard/internal/models"
)

// TopN is the number of products kept in the ranking view.
const TopN = 10

type Views struct {
	Metric      models.Metric             `json:"metric"`
	TimeSeries  []models.DailyAggregate   `json:"time_series"`
	TopProducts []models.ProductAggregate `json:"top_products"`
}

// BuildViews derives the time series and the top products ranking for
// metric. ok is false, and nothing is aggregated, when t is empty.
func BuildViews(t *models.Table, metric models.Metric) (Views, bool) {
	if t.Empty() {
		return Views{Metric: metric}, false
	}
	return Views{
		Metric:      metric,
		TimeSeries:  TimeSeries(t),
		TopProducts: TopProducts(t, metric, TopN),
	}, true
}

// TimeSeries groups t by exact order date, ascending.
func TimeSeries(t *models.Table) []models.DailyAggregate {
	groups := make(map[time.Time]*accumulator)
	for r := range t.All() {
		day := models.Day(r.OrderDate)
		acc, ok := groups[day]
		if !ok {
			acc = &accumulator{}
			groups[day] = acc
		}
		acc.add(r)
	}

	series := make([]models.DailyAggregate, 0, len(groups))
	for day, acc := range groups {
		series = append(series, models.DailyAggregate{OrderDate: day, Totals: acc.totals()})
	}
	slices.SortFunc(series, func(a, b models.DailyAggregate) int {
		return a.OrderDate.Compare(b.OrderDate)
	})
	return series
}

// TopProducts groups t by product name and returns the n groups with the
// highest metric. Groups with equal values keep the order in which their
// product first appears in t. Rows without a product name are not grouped.
func TopProducts(t *models.Table, metric models.Metric, n int) []models.ProductAggregate {
	index := make(map[string]int)
	var names []string
	var accs []*accumulator
	for r := range t.All() {
		if r.ProductName == "" {
			continue
		}
		i, ok := index[r.ProductName]
		if !ok {
			i = len(names)
			index[r.ProductName] = i
			names = append(names, r.ProductName)
			accs = append(accs, &accumulator{})
		}
		accs[i].add(r)
	}

	ranked := make([]models.ProductAggregate, len(names))
	for i, name := range names {
		ranked[i] = models.ProductAggregate{ProductName: name, Totals: accs[i].totals()}
	}
	slices.SortStableFunc(ranked, func(a, b models.ProductAggregate) int {
		return cmp.Compare(metric.Of(b.Totals), metric.Of(a.Totals))
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
