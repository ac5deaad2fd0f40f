package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"superstore-dashboard/internal/models"
)

// TrendWindowDays is the length of the comparison window that ends the day
// before the selected range starts.
const TrendWindowDays = 30

// TrendWindow returns [rangeStart-30d, rangeStart) as a half-open interval.
func TrendWindow(rangeStart time.Time) (start, end time.Time) {
	end = models.Day(rangeStart)
	return end.AddDate(0, 0, -TrendWindowDays), end
}

// Trend compares currentSales with the sales of population inside the
// trend window and returns the change in percent. population is expected
// to be filtered by category only, so the window is not clipped by the
// active date range. A window without sales yields 0.
func Trend(population *models.Table, rangeStart time.Time, currentSales float64) float64 {
	start, end := TrendWindow(rangeStart)

	var previous decimal.Decimal
	for r := range population.All() {
		d := models.Day(r.OrderDate)
		if !d.Before(start) && d.Before(end) {
			previous = previous.Add(decimal.NewFromFloat(r.Sales))
		}
	}

	prev := previous.InexactFloat64()
	if prev == 0 {
		return 0
	}
	return (currentSales - prev) / prev * 100
}
