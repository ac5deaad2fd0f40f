package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"superstore-dashboard/internal/models"
)

const superstoreCSV = `Row ID,Order ID,Order Date,Ship Mode,Region,State,Category,Sub-Category,Product Name,Sales,Quantity,Discount,Profit
1,CA-1,2016-11-08,Second Class,South,Kentucky,Furniture,Bookcases,Bush Somerset Collection Bookcase,261.96,2,0,41.9136
2,CA-1,11/8/2016,Second Class,South,Kentucky,Furniture,Chairs,"Hon Deluxe Fabric Upholstered Stacking Chairs, Rounded Back",731.94,3,0,219.582
3,CA-2,2016-06-12,Second Class,West,California,Office Supplies,Labels,Self-Adhesive Address Labels,14.62,2,0,6.8714
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOpen_PicksSourceByDSN(t *testing.T) {
	tests := []struct {
		dsn    string
		want   any
		driver string
	}{
		{"data/orders.csv", &CSVSource{}, ""},
		{"Sample - Superstore.xlsx", &XLSXSource{}, ""},
		{"postgres://user:pw@localhost/shop", &SQLSource{}, "postgres"},
		{"postgresql://localhost/shop", &SQLSource{}, "postgres"},
		{"sqlite://orders.db", &SQLSource{}, "sqlite3"},
		{"orders.sqlite", &SQLSource{}, "sqlite3"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			src, err := Open(tt.dsn)
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
			if sqlSrc, ok := src.(*SQLSource); ok {
				assert.Equal(t, tt.driver, sqlSrc.driver)
				assert.Equal(t, "orders", sqlSrc.opts.table)
			}
		})
	}

	_, err := Open("orders.json")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestCSVSource_Load(t *testing.T) {
	path := writeTemp(t, "superstore.csv", superstoreCSV)

	var progressed atomic.Int64
	src, err := Open(path, WithProgress(func(n int) { progressed.Add(int64(n)) }))
	require.NoError(t, err)

	table, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.EqualValues(t, 3, progressed.Load())

	records := table.Records()
	assert.Equal(t, models.Record{
		OrderDate:   time.Date(2016, 11, 8, 0, 0, 0, 0, time.UTC),
		Region:      "South",
		State:       "Kentucky",
		Category:    "Furniture",
		SubCategory: "Bookcases",
		ProductName: "Bush Somerset Collection Bookcase",
		Sales:       261.96,
		Quantity:    2,
		Profit:      41.9136,
	}, records[0])
	assert.Equal(t, records[0].OrderDate, records[1].OrderDate)
	assert.Equal(t, "Hon Deluxe Fabric Upholstered Stacking Chairs, Rounded Back", records[1].ProductName)
}

func TestCSVSource_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr error
	}{
		{
			name:    "empty file",
			csv:     "",
			wantErr: ErrEmptySource,
		},
		{
			name:    "header only",
			csv:     "Order Date,Region,State,Category,Sub-Category,Product Name,Sales,Quantity,Profit\n",
			wantErr: ErrEmptySource,
		},
		{
			name:    "missing column",
			csv:     "Order Date,Region,State,Category,Product Name,Sales,Quantity,Profit\n2016-01-01,East,NY,Tech,Phone,1,1,1\n",
			wantErr: ErrMissingColumn,
		},
		{
			name: "invalid date",
			csv:  "Order Date,Region,State,Category,Sub-Category,Product Name,Sales,Quantity,Profit\nnot-a-date,East,NY,Tech,Phones,Phone,1,1,1\n",
		},
		{
			name: "invalid sales",
			csv:  "Order Date,Region,State,Category,Sub-Category,Product Name,Sales,Quantity,Profit\n2016-01-01,East,NY,Tech,Phones,Phone,abc,1,1\n",
		},
		{
			name: "fractional quantity",
			csv:  "Order Date,Region,State,Category,Sub-Category,Product Name,Sales,Quantity,Profit\n2016-01-01,East,NY,Tech,Phones,Phone,1,1.5,1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(writeTemp(t, "data.csv", tt.csv))
			require.NoError(t, err)

			_, err = src.Load(context.Background())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCSVSource_ErrorNamesLine(t *testing.T) {
	csv := "Order Date,Region,State,Category,Sub-Category,Product Name,Sales,Quantity,Profit\n" +
		"2016-01-01,East,NY,Tech,Phones,Phone,1,1,1\n" +
		"2016-01-02,East,NY,Tech,Phones,Phone,1,x,1\n"
	src, err := Open(writeTemp(t, "data.csv", csv))
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "Quantity")
}

func TestXLSXSource_Load(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{
		time.Date(2017, 3, 14, 0, 0, 0, 0, time.UTC), "Central", "Texas", "Technology", "Phones", "Polycom Phone", 371.168, 4, 41.7564,
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{
		"2017-03-15", "Central", "Texas", "Office Supplies", "Paper", "Xerox 1967", 15.552, 3, 5.4432,
	}))

	path := filepath.Join(t.TempDir(), "superstore.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := Open(path)
	require.NoError(t, err)
	table, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	records := table.Records()
	assert.Equal(t, time.Date(2017, 3, 14, 0, 0, 0, 0, time.UTC), records[0].OrderDate)
	assert.Equal(t, time.Date(2017, 3, 15, 0, 0, 0, 0, time.UTC), records[1].OrderDate)
	assert.Equal(t, "Polycom Phone", records[0].ProductName)
	assert.InDelta(t, 371.168, records[0].Sales, 1e-9)
	assert.Equal(t, 4, records[0].Quantity)
}

func TestXLSXSource_UnknownSheet(t *testing.T) {
	f := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := Open(path, WithSheet("Orders"))
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.Error(t, err)
}

func TestReadTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"order_date", "region", "state", "category", "sub_category", "product_name", "sales", "quantity", "profit"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + selectColumns + " FROM orders")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(time.Date(2016, 11, 8, 13, 0, 0, 0, time.UTC), "South", "Kentucky", "Furniture", "Bookcases", "Bookcase", 261.96, int64(2), 41.91).
			AddRow("2016-06-12", "West", nil, "Office Supplies", "Labels", "Labels", 14.62, int64(2), 6.87))

	table, err := ReadTable(context.Background(), db, "orders", nil)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	records := table.Records()
	assert.Equal(t, time.Date(2016, 11, 8, 0, 0, 0, 0, time.UTC), records[0].OrderDate)
	assert.Equal(t, "", records[1].State)
	assert.Equal(t, time.Date(2016, 6, 12, 0, 0, 0, 0, time.UTC), records[1].OrderDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTable_TrimsCategoricalValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"order_date", "region", "state", "category", "sub_category", "product_name", "sales", "quantity", "profit"}
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("2016-06-12", "East ", " New York", "Technology\t", " Phones ", " Phone A ", 10.0, int64(1), 1.0).
			AddRow("2016-06-13", "East", "New York", "Technology", "Phones", "Phone A", 20.0, int64(1), 2.0))

	table, err := ReadTable(context.Background(), db, "orders", nil)
	require.NoError(t, err)

	records := table.Records()
	assert.Equal(t, records[1].Region, records[0].Region)
	assert.Equal(t, "New York", records[0].State)
	assert.Equal(t, "Technology", records[0].Category)
	assert.Equal(t, "Phones", records[0].SubCategory)
	assert.Equal(t, "Phone A", records[0].ProductName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTable_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = ReadTable(context.Background(), db, "orders; DROP TABLE orders", nil)
	assert.Error(t, err)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{
		"order_date", "region", "state", "category", "sub_category", "product_name", "sales", "quantity", "profit",
	}))
	_, err = ReadTable(context.Background(), db, "sales.orders", nil)
	assert.ErrorIs(t, err, ErrEmptySource)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
	_, err = ReadTable(context.Background(), db, "orders", nil)
	assert.ErrorContains(t, err, "connection reset")
}

func TestSQLSource_IdentityHidesDSN(t *testing.T) {
	src, err := Open("postgres://admin:secret@db/shop", WithTable("orders"))
	require.NoError(t, err)

	id, err := src.Identity(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, id, "secret")
	assert.Contains(t, id, "#orders")
}

func TestParseDate(t *testing.T) {
	want := time.Date(2016, 11, 8, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2016-11-08", "2016-11-08 10:30:00", "11/8/2016", "11/08/2016", "2016-11-08T10:30:00Z", "42682"} {
		got, err := parseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := parseDate("")
	assert.Error(t, err)
}

type countingSource struct {
	id    string
	loads atomic.Int32
	table *models.Table
}

func (s *countingSource) Identity(context.Context) (string, error) { return s.id, nil }

func (s *countingSource) Load(context.Context) (*models.Table, error) {
	s.loads.Add(1)
	time.Sleep(10 * time.Millisecond)
	return s.table, nil
}

func TestCache_MemoizesByIdentity(t *testing.T) {
	cache := NewCache(nil)
	src := &countingSource{id: "file:a#1", table: models.NewTable([]models.Record{{Region: "East"}})}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, id, err := cache.Get(context.Background(), src)
			assert.NoError(t, err)
			assert.Equal(t, "file:a#1", id)
			assert.Equal(t, 1, table.Len())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, src.loads.Load())
	assert.Equal(t, 1, cache.Len())

	assert.True(t, cache.Invalidate("file:a#1"))
	assert.False(t, cache.Invalidate("file:a#1"))

	_, _, err := cache.Get(context.Background(), src)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.loads.Load())
	assert.Equal(t, 1, cache.Purge())
	assert.Zero(t, cache.Len())
}

func TestCache_ContentChangeIsNewIdentity(t *testing.T) {
	path := writeTemp(t, "orders.csv", superstoreCSV)
	src, err := Open(path)
	require.NoError(t, err)

	cache := NewCache(nil)
	_, first, err := cache.Get(context.Background(), src)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(superstoreCSV+"4,CA-3,2016-06-13,Standard,West,Utah,Technology,Phones,Phone,10,1,0,2\n"), 0o600))
	table, second, err := cache.Get(context.Background(), src)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, 2, cache.Len())
}
