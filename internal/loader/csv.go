package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"superstore-dashboard/internal/models"
)

type CSVSource struct {
	path string
	opts options
}

func (s *CSVSource) Identity(_ context.Context) (string, error) {
	return fileIdentity(s.path)
}

func (s *CSVSource) Load(ctx context.Context) (*models.Table, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrEmptySource)
	}

	return parseRows(ctx, rows[0], rows[1:], 2, s.opts)
}
