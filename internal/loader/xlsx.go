package loader

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"superstore-dashboard/internal/models"
)

type XLSXSource struct {
	path string
	opts options
}

func (s *XLSXSource) Identity(_ context.Context) (string, error) {
	id, err := fileIdentity(s.path)
	if err != nil {
		return "", err
	}
	if s.opts.sheet != "" {
		id += "!" + s.opts.sheet
	}
	return id, nil
}

// Load reads raw cell values so dates arrive as Excel serial numbers
// regardless of the workbook's display format.
func (s *XLSXSource) Load(ctx context.Context) (*models.Table, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := s.opts.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrEmptySource)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrEmptySource, sheet)
	}

	return parseRows(ctx, rows[0], rows[1:], 2, s.opts)
}
