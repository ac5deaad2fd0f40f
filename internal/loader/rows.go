package loader

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"superstore-dashboard/internal/models"
)

const (
	batchSize  = 5000
	maxWorkers = 8
)

const (
	headerOrderDate   = "Order Date"
	headerSales       = "Sales"
	headerQuantity    = "Quantity"
	headerProfit      = "Profit"
	headerRegion      = string(models.ColRegion)
	headerState       = string(models.ColState)
	headerCategory    = string(models.ColCategory)
	headerSubCategory = string(models.ColSubCategory)
	headerProductName = string(models.ColProductName)
)

// Headers is the column layout shared by every tabular source and the
// exporters.
var Headers = []string{
	headerOrderDate,
	headerRegion,
	headerState,
	headerCategory,
	headerSubCategory,
	headerProductName,
	headerSales,
	headerQuantity,
	headerProfit,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04",
	"2-Jan-2006",
}

type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var missing []string
	for _, h := range Headers {
		if _, ok := idx[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) cell(row []string, header string) string {
	i := c[header]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRows converts data rows in parallel batches. firstLine is the
// 1-based line number of rows[0], used in error messages.
func parseRows(ctx context.Context, header []string, rows [][]string, firstLine int, o options) (*models.Table, error) {
	idx, err := indexHeader(header)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptySource
	}

	batches := (len(rows) + batchSize - 1) / batchSize
	parsed := make([][]models.Record, batches)

	var progressMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for b := range batches {
		start := b * batchSize
		end := min(start+batchSize, len(rows))
		g.Go(func() error {
			out := make([]models.Record, 0, end-start)
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, err := parseRecord(idx, rows[i])
				if err != nil {
					return fmt.Errorf("line %d: %w", firstLine+i, err)
				}
				out = append(out, r)
			}
			parsed[b] = out

			if o.progress != nil {
				progressMu.Lock()
				o.progress(len(out))
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(rows))
	for _, batch := range parsed {
		records = append(records, batch...)
	}
	return models.NewTable(records), nil
}

func parseRecord(idx columnIndex, row []string) (models.Record, error) {
	date, err := parseDate(idx.cell(row, headerOrderDate))
	if err != nil {
		return models.Record{}, fmt.Errorf("%s: %w", headerOrderDate, err)
	}
	sales, err := parseNumber(idx.cell(row, headerSales))
	if err != nil {
		return models.Record{}, fmt.Errorf("%s: %w", headerSales, err)
	}
	quantity, err := parseQuantity(idx.cell(row, headerQuantity))
	if err != nil {
		return models.Record{}, fmt.Errorf("%s: %w", headerQuantity, err)
	}
	profit, err := parseNumber(idx.cell(row, headerProfit))
	if err != nil {
		return models.Record{}, fmt.Errorf("%s: %w", headerProfit, err)
	}

	return models.Record{
		OrderDate:   date,
		Region:      idx.cell(row, headerRegion),
		State:       idx.cell(row, headerState),
		Category:    idx.cell(row, headerCategory),
		SubCategory: idx.cell(row, headerSubCategory),
		ProductName: idx.cell(row, headerProductName),
		Sales:       sales,
		Quantity:    quantity,
		Profit:      profit,
	}, nil
}

// parseDate accepts the common text layouts and raw Excel serial dates.
// The result is truncated to the calendar day.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Day(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial date %q: %w", s, err)
		}
		return models.Day(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseNumber treats an empty cell as 0, matching how sums skip blanks.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parseQuantity(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return int(v), nil
}
