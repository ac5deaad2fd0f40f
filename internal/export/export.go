// Package export serializes a filtered table for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"superstore-dashboard/internal/loader"
	"superstore-dashboard/internal/models"
)

const (
	dateLayout = "2006-01-02"
	SheetName  = "Filtered Data"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func (f Format) FileName() string {
	return "filtered_data." + string(f)
}

// Write serializes t in format f.
func Write(w io.Writer, f Format, t *models.Table) error {
	if f == FormatXLSX {
		return WriteXLSX(w, t)
	}
	return WriteCSV(w, t)
}

// WriteCSV writes t with the Superstore header row. The output loads back
// through loader.CSVSource unchanged.
func WriteCSV(w io.Writer, t *models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(loader.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r := range t.All() {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r models.Record) []string {
	return []string{
		r.OrderDate.Format(dateLayout),
		r.Region,
		r.State,
		r.Category,
		r.SubCategory,
		r.ProductName,
		strconv.FormatFloat(r.Sales, 'f', -1, 64),
		strconv.Itoa(r.Quantity),
		strconv.FormatFloat(r.Profit, 'f', -1, 64),
	}
}

// WriteXLSX streams t into a single-sheet workbook.
func WriteXLSX(w io.Writer, t *models.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	header := make([]any, len(loader.Headers))
	for i, h := range loader.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for r := range t.All() {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{
			r.OrderDate.Format(dateLayout),
			r.Region,
			r.State,
			r.Category,
			r.SubCategory,
			r.ProductName,
			r.Sales,
			r.Quantity,
			r.Profit,
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
