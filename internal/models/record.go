package models

import (
	"iter"
	"slices"
	"time"
)

// Column names a categorical field of a Record. Values match the
// Superstore spreadsheet headers.
type Column string

const (
	ColRegion      Column = "Region"
	ColState       Column = "State"
	ColCategory    Column = "Category"
	ColSubCategory Column = "Sub-Category"
	ColProductName Column = "Product Name"
)

type Record struct {
	OrderDate   time.Time
	Region      string
	State       string
	Category    string
	SubCategory string
	ProductName string
	Sales       float64
	Quantity    int
	Profit      float64
}

// Field returns the categorical value of c. An empty string is a null value.
func (r Record) Field(c Column) string {
	switch c {
	case ColRegion:
		return r.Region
	case ColState:
		return r.State
	case ColCategory:
		return r.Category
	case ColSubCategory:
		return r.SubCategory
	case ColProductName:
		return r.ProductName
	default:
		return ""
	}
}

// Table is an immutable ordered set of records. A nil *Table is a valid
// empty table.
type Table struct {
	records []Record
}

// NewTable copies records into a new Table.
func NewTable(records []Record) *Table {
	return &Table{records: slices.Clone(records)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

func (t *Table) Empty() bool {
	return t.Len() == 0
}

// All iterates the records in table order.
func (t *Table) All() iter.Seq[Record] {
	if t == nil {
		return func(func(Record) bool) {}
	}
	return slices.Values(t.records)
}

// Records returns a copy of the underlying rows.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return slices.Clone(t.records)
}

// Filter returns a new table holding the records that satisfy keep.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := make([]Record, 0, t.Len())
	for r := range t.All() {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Table{records: out}
}

// DateExtent returns the earliest and latest order dates. ok is false for
// an empty table.
func (t *Table) DateExtent() (minDate, maxDate time.Time, ok bool) {
	for r := range t.All() {
		if !ok {
			minDate, maxDate, ok = r.OrderDate, r.OrderDate, true
			continue
		}
		if r.OrderDate.Before(minDate) {
			minDate = r.OrderDate
		}
		if r.OrderDate.After(maxDate) {
			maxDate = r.OrderDate
		}
	}
	return minDate, maxDate, ok
}

// Day truncates t to midnight UTC, keeping its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
