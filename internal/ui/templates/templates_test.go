package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/pipeline"
	"superstore-dashboard/internal/services"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	return b.String()
}

func testSnapshot() *services.Snapshot {
	d := services.NewDashboard(nil)
	d.SetData([]models.Record{
		{OrderDate: time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), Region: "East", State: "New York", Category: "Technology", SubCategory: "Phones", ProductName: "Apple <iPhone>", Sales: 1234.5, Quantity: 1500, Profit: 123.45},
		{OrderDate: time.Date(2017, 3, 2, 0, 0, 0, 0, time.UTC), Region: "West", State: "California", Category: "Furniture", SubCategory: "Chairs", ProductName: "Task Chair", Sales: 100, Quantity: 2, Profit: -10},
	})
	return d.Compute(context.Background(), services.Query{Metric: models.MetricSales})
}

func TestDashboard_Page(t *testing.T) {
	html := renderString(t, Dashboard(testSnapshot()))

	for _, want := range []string{
		"<title>SuperStore KPI Dashboard</title>",
		datastarCDN,
		`data-on:change="@get('/sse/dashboard')"`,
		`data-bind="subCategory"`,
		`id="kpis"`,
		`id="timeseries"`,
		`id="top-products"`,
		`id="heatmap"`,
		`value="Margin Rate"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestKPITiles(t *testing.T) {
	html := renderString(t, KPITiles(testSnapshot()))

	for _, want := range []string{"$1,334.50", "1,502", "$113.45", "8.50%", "Average Sales per Order (all data): $667.25"} {
		if !strings.Contains(html, want) {
			t.Errorf("tiles missing %q: %s", want, html)
		}
	}
}

func TestNotices(t *testing.T) {
	snap := &services.Snapshot{Validation: pipeline.InvalidRangeMessage, NoData: true}
	html := renderString(t, Notices(snap))

	if !strings.Contains(html, "From Date must be earlier than To Date.") {
		t.Error("missing date order message")
	}
	if !strings.Contains(html, "No data available for the selected filters and date range.") {
		t.Error("missing no data warning")
	}

	if html := renderString(t, Notices(&services.Snapshot{})); html != `<div id="notices"></div>` {
		t.Errorf("empty notices = %q", html)
	}
}

func TestFilters_MarksSelection(t *testing.T) {
	positions := []pipeline.Position{
		{Column: models.ColRegion, Options: []string{"East", "West"}, Selected: "West"},
	}
	html := renderString(t, Filters(positions, models.DateRange{}, models.DateRange{}))

	if !strings.Contains(html, `<option value="West" selected>West</option>`) {
		t.Errorf("selected option not marked: %s", html)
	}
	if !strings.Contains(html, `<option value="All">All</option>`) {
		t.Error("All option missing")
	}
}

func TestTopProducts_Escapes(t *testing.T) {
	html := renderString(t, TopProducts(testSnapshot()))
	if strings.Contains(html, "<iPhone>") {
		t.Error("product name not escaped")
	}
	if !strings.Contains(html, "Apple &lt;iPhone&gt;") {
		t.Errorf("escaped name missing: %s", html)
	}
}

func TestExportQuery(t *testing.T) {
	q := ExportQuery(services.QueryParams{Region: "East", State: pipeline.All, SubCategory: "Phones", Metric: "Sales"})
	if got := q.Encode(); got != "metric=Sales&region=East&sub_category=Phones" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestFilters_EscapesOptionValues(t *testing.T) {
	positions := []pipeline.Position{
		{Column: models.ColState, Options: []string{`"><script>alert(1)</script>`}, Selected: pipeline.All},
	}
	html := renderString(t, Filters(positions, models.DateRange{}, models.DateRange{}))

	if strings.Contains(html, "<script>") {
		t.Errorf("option value not escaped: %s", html)
	}
	if !strings.Contains(html, `&lt;script&gt;`) {
		t.Errorf("escaped option text missing: %s", html)
	}
}

func TestNotices_DateNotice(t *testing.T) {
	snap := &services.Snapshot{DateNotice: "Selected dates must fall between 2017-03-01 and 2017-03-01."}
	html := renderString(t, Notices(snap))

	want := `<div id="notices"><p class="notice warning">Selected dates must fall between 2017-03-01 and 2017-03-01.</p></div>`
	if html != want {
		t.Errorf("notices = %q, want %q", html, want)
	}
}

func TestExportLinks_EscapesHref(t *testing.T) {
	html := renderString(t, ExportLinks(services.QueryParams{Category: "Office & Supplies", Metric: "Sales"}))

	if !strings.Contains(html, `category=Office&#43;%26&#43;Supplies`) {
		t.Errorf("href not encoded for the attribute: %s", html)
	}
	if strings.Count(html, "<a ") != 2 {
		t.Errorf("expected csv and xlsx links: %s", html)
	}
}
