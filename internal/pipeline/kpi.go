package pipeline

import (
	"github.com/shopspring/decimal"

	"superstore-dashboard/internal/models"
)

// MarginRate is the business rule for per-group margins: profit over
// sales, with a zero sales denominator replaced by 1.
func MarginRate(profit, sales float64) float64 {
	denominator := sales
	if denominator == 0 {
		denominator = 1
	}
	return profit / denominator
}

// Aggregate reduces t to the four dashboard KPIs. An empty table, or one
// whose sales sum to zero, has a margin rate of exactly 0.
func Aggregate(t *models.Table) models.KPIScalars {
	if t.Empty() {
		return models.KPIScalars{}
	}

	var acc accumulator
	for r := range t.All() {
		acc.add(r)
	}
	totals := acc.totals()

	kpis := models.KPIScalars{
		TotalSales:    totals.Sales,
		TotalQuantity: totals.Quantity,
		TotalProfit:   totals.Profit,
	}
	if totals.Sales != 0 {
		kpis.MarginRate = MarginRate(totals.Profit, totals.Sales)
	}
	return kpis
}

// accumulator sums measures in decimal so long columns of cents do not
// drift.
type accumulator struct {
	sales    decimal.Decimal
	profit   decimal.Decimal
	quantity int
}

func (a *accumulator) add(r models.Record) {
	a.sales = a.sales.Add(decimal.NewFromFloat(r.Sales))
	a.profit = a.profit.Add(decimal.NewFromFloat(r.Profit))
	a.quantity += r.Quantity
}

func (a *accumulator) totals() models.Totals {
	sales := a.sales.InexactFloat64()
	profit := a.profit.InexactFloat64()
	return models.Totals{
		Sales:      sales,
		Quantity:   a.quantity,
		Profit:     profit,
		MarginRate: MarginRate(profit, sales),
	}
}
