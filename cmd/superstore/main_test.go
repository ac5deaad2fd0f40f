package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superstore-dashboard/internal/loader"
)

const ordersCSV = `Row ID,Order Date,Region,State,Category,Sub-Category,Product Name,Sales,Quantity,Profit
1,2016-11-08,South,Kentucky,Furniture,Bookcases,Bush Somerset Collection Bookcase,261.96,2,41.9136
2,2016-11-08,South,Kentucky,Furniture,Chairs,Hon Deluxe Fabric Upholstered Stacking Chairs,731.94,3,219.582
3,2016-06-12,West,California,Office Supplies,Labels,Self-Adhesive Address Labels,14.62,2,6.8714
`

func writeOrders(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(ordersCSV), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReportCmd(t *testing.T) {
	out, err := run(t, "report", "--source", writeOrders(t), "--region", "South")
	require.NoError(t, err)

	assert.Contains(t, out, "SuperStore KPI Dashboard")
	assert.Contains(t, out, "$993.90")
	assert.Contains(t, out, "Hon Deluxe Fabric Upholstered Stacking Chairs")
	assert.Contains(t, out, "Bookcases")
}

func TestReportCmd_InvalidMetric(t *testing.T) {
	_, err := run(t, "report", "--source", writeOrders(t), "--metric", "revenue")
	assert.ErrorContains(t, err, "unknown metric")
}

func TestOptionsCmd(t *testing.T) {
	out, err := run(t, "options", "--source", writeOrders(t), "--region", "West", "--state", "Kentucky")
	require.NoError(t, err)

	assert.Contains(t, out, "South, West")
	assert.Contains(t, out, "All (reset)")
	assert.Contains(t, out, "California")
	assert.Contains(t, out, "2016-06-12 .. 2016-06-12")
}

func TestExportCmd(t *testing.T) {
	src := writeOrders(t)
	dst := filepath.Join(t.TempDir(), "south.xlsx")

	_, err := run(t, "export", "--source", src, "--region", "South", "--format", "xlsx", "-o", dst)
	require.NoError(t, err)

	exported, err := loader.Open(dst)
	require.NoError(t, err)
	table, err := exported.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestExportCmd_Stdout(t *testing.T) {
	out, err := run(t, "export", "--source", writeOrders(t), "--category", "Office Supplies", "-o", "-")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2016-06-12,West,California,Office Supplies,Labels,Self-Adhesive Address Labels,14.62,2,6.8714", lines[1])
}

func TestExportCmd_InvertedRange(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "empty.csv")
	out, err := run(t, "export", "--source", writeOrders(t), "--from", "2016-11-08", "--to", "2016-06-12", "-o", dst)
	require.NoError(t, err)

	assert.Contains(t, out, "From Date must be earlier than To Date.")
	assert.Contains(t, out, "wrote 0 orders")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(loader.Headers, ",")+"\n", string(data))
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "superstore dev\n", out)
}
