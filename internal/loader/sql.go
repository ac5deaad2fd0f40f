package loader

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"superstore-dashboard/internal/models"
)

const selectColumns = "order_date, region, state, category, sub_category, product_name, sales, quantity, profit"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads orders from a PostgreSQL or SQLite table whose columns
// are the snake_case forms of the Superstore headers.
type SQLSource struct {
	driver string
	dsn    string
	opts   options
}

// Identity hashes the DSN so credentials never end up in logs.
func (s *SQLSource) Identity(_ context.Context) (string, error) {
	sum := sha256.Sum256([]byte(s.dsn))
	return fmt.Sprintf("sql:%s:%s#%s", s.driver, hex.EncodeToString(sum[:8]), s.opts.table), nil
}

func (s *SQLSource) Load(ctx context.Context) (*models.Table, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return ReadTable(ctx, db, s.opts.table, s.opts.progress)
}

// ReadTable selects every order row from table.
func ReadTable(ctx context.Context, db *sql.DB, table string, progress func(int)) (*models.Table, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := db.QueryContext(ctx, "SELECT "+selectColumns+" FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var (
			orderDate                                     any
			region, state, category, subCategory, product sql.NullString
			sales, profit                                 sql.NullFloat64
			quantity                                      sql.NullInt64
		)
		if err := rows.Scan(&orderDate, &region, &state, &category, &subCategory, &product, &sales, &quantity, &profit); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(records)+1, err)
		}

		date, err := scanDate(orderDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: order_date: %w", len(records)+1, err)
		}

		records = append(records, models.Record{
			OrderDate:   date,
			Region:      text(region),
			State:       text(state),
			Category:    text(category),
			SubCategory: text(subCategory),
			ProductName: text(product),
			Sales:       sales.Float64,
			Quantity:    int(quantity.Int64),
			Profit:      profit.Float64,
		})
		if progress != nil {
			progress(1)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: table %s", ErrEmptySource, table)
	}

	return models.NewTable(records), nil
}

// text trims categorical values the same way file cells are trimmed.
func text(s sql.NullString) string {
	return strings.TrimSpace(s.String)
}

// scanDate handles drivers that return DATE columns as time.Time
// (PostgreSQL) and those that return stored text (SQLite).
func scanDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return models.Day(d), nil
	case string:
		return parseDate(d)
	case []byte:
		return parseDate(string(d))
	case nil:
		return time.Time{}, fmt.Errorf("null date")
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}
