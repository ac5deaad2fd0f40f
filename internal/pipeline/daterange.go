package pipeline

import (
	"fmt"
	"time"

	"superstore-dashboard/internal/models"
)

const InvalidRangeMessage = "From Date must be earlier than To Date."

// Narrow keeps the rows whose order date lies in [from, to], compared at
// day granularity. Bounds are never swapped: from after to matches nothing.
func Narrow(t *models.Table, from, to time.Time) *models.Table {
	from, to = models.Day(from), models.Day(to)
	return t.Filter(func(r models.Record) bool {
		d := models.Day(r.OrderDate)
		return !d.Before(from) && !d.After(to)
	})
}

// DateBounds returns the selectable date domain: the extent of the
// categorical result, or of the base table when that result is empty.
func DateBounds(categorical, base *models.Table) (models.DateRange, bool) {
	lo, hi, ok := categorical.DateExtent()
	if !ok {
		lo, hi, ok = base.DateExtent()
	}
	if !ok {
		return models.DateRange{}, false
	}
	return models.DateRange{From: models.Day(lo), To: models.Day(hi)}, true
}

// ValidateRange returns the user-facing message for an inverted range, or
// an empty string.
func ValidateRange(r models.DateRange) string {
	if models.Day(r.From).After(models.Day(r.To)) {
		return InvalidRangeMessage
	}
	return ""
}

// OutsideBounds reports which ends of r fall outside the selectable domain.
// Narrow does not clamp; callers decide whether to reset or report.
func OutsideBounds(r, bounds models.DateRange) (from, to bool) {
	lo, hi := models.Day(bounds.From), models.Day(bounds.To)
	out := func(t time.Time) bool {
		d := models.Day(t)
		return d.Before(lo) || d.After(hi)
	}
	return out(r.From), out(r.To)
}

// DomainMessage is the user-facing notice for dates outside bounds.
func DomainMessage(bounds models.DateRange) string {
	return fmt.Sprintf("Selected dates must fall between %s and %s.",
		bounds.From.Format(time.DateOnly), bounds.To.Format(time.DateOnly))
}
