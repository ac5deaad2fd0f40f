package services

import (
	"fmt"
	"strings"
	"time"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/pipeline"
)

const dateLayout = "2006-01-02"

// Query is one dashboard interaction: a filter chain, an optional date
// range and the metric driving both charts. Nil dates default to the
// selectable bounds.
type Query struct {
	Chain  pipeline.FilterChain
	From   *time.Time
	To     *time.Time
	Metric models.Metric
}

// QueryParams carries raw user input from query strings, datastar
// signals or CLI flags.
type QueryParams struct {
	Region      string `json:"region"`
	State       string `json:"state"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
	From        string `json:"from"`
	To          string `json:"to"`
	Metric      string `json:"metric"`
}

// Query validates the params. Dates must be YYYY-MM-DD; an inverted range
// is accepted here and reported by Compute.
func (p QueryParams) Query() (Query, error) {
	q := Query{
		Chain: pipeline.NewFilterChain(map[models.Column]string{
			models.ColRegion:      strings.TrimSpace(p.Region),
			models.ColState:       strings.TrimSpace(p.State),
			models.ColCategory:    strings.TrimSpace(p.Category),
			models.ColSubCategory: strings.TrimSpace(p.SubCategory),
		}),
		Metric: models.MetricSales,
	}

	var err error
	if q.From, err = parseDateParam("from", p.From); err != nil {
		return Query{}, err
	}
	if q.To, err = parseDateParam("to", p.To); err != nil {
		return Query{}, err
	}

	if strings.TrimSpace(p.Metric) != "" {
		if q.Metric, err = models.ParseMetric(p.Metric); err != nil {
			return Query{}, err
		}
	}
	return q, nil
}

func parseDateParam(name, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", name, s)
	}
	return &t, nil
}
