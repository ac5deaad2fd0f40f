package models

import (
	"fmt"
	"strings"
	"time"
)

type Metric string

const (
	MetricSales      Metric = "Sales"
	MetricQuantity   Metric = "Quantity"
	MetricProfit     Metric = "Profit"
	MetricMarginRate Metric = "Margin Rate"
)

// Metrics lists the selectable metrics in display order.
var Metrics = []Metric{MetricSales, MetricQuantity, MetricProfit, MetricMarginRate}

// ParseMetric accepts the display name or a snake/kebab case variant
// ("margin_rate", "margin-rate").
func ParseMetric(s string) (Metric, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	for _, m := range Metrics {
		if strings.ToLower(string(m)) == norm {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Of reads the metric from a set of group totals.
func (m Metric) Of(t Totals) float64 {
	switch m {
	case MetricQuantity:
		return float64(t.Quantity)
	case MetricProfit:
		return t.Profit
	case MetricMarginRate:
		return t.MarginRate
	default:
		return t.Sales
	}
}

// Totals are the summed measures of one group plus the derived margin rate.
type Totals struct {
	Sales      float64 `json:"sales"`
	Quantity   int     `json:"quantity"`
	Profit     float64 `json:"profit"`
	MarginRate float64 `json:"margin_rate"`
}

type DailyAggregate struct {
	OrderDate time.Time `json:"order_date"`
	Totals
}

type ProductAggregate struct {
	ProductName string `json:"product_name"`
	Totals
}

type KPIScalars struct {
	TotalSales    float64 `json:"total_sales"`
	TotalQuantity int     `json:"total_quantity"`
	TotalProfit   float64 `json:"total_profit"`
	MarginRate    float64 `json:"margin_rate"`
}

type HeatmapCell struct {
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Sales       float64 `json:"sales"`
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Valid() bool {
	return !r.From.After(r.To)
}
