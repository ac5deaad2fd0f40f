package templates

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/pipeline"
	"superstore-dashboard/internal/services"
	"superstore-dashboard/internal/ui/format"
)

const (
	NoDataMessage = "No data available for the selected filters and date range. Please adjust your filters."
	dateLayout    = "2006-01-02"
	chartWidth    = 720
	chartHeight   = 220
)

var fragmentTemplates = template.Must(template.New("fragments").Parse(`
{{- define "filters" -}}
<div id="filters" class="filters">
{{- range .Selects}}<label>{{.Label}}<select data-bind="{{.Signal}}">
{{- range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>{{end -}}
</select></label>{{end}}
{{- range .Dates}}<label>{{.Label}}<input type="date" data-bind="{{.Signal}}" value="{{.Value}}" min="{{.Min}}" max="{{.Max}}"></label>{{end -}}
</div>
{{- end}}

{{- define "notices" -}}
<div id="notices">
{{- if .Validation}}<p class="notice error">{{.Validation}}</p>{{end}}
{{- if .DateNotice}}<p class="notice warning">{{.DateNotice}}</p>{{end}}
{{- if .NoData}}<p class="notice warning">{{.NoDataMessage}}</p>{{end -}}
</div>
{{- end}}

{{- define "kpis" -}}
<div id="kpis" class="kpis">
{{- range .Tiles}}<div class="tile"><span class="label">{{.Label}}</span><span class="value">{{.Value}}</span></div>{{end}}
{{- with .Trend}}<p class="trend {{.Class}}">Sales Change vs Previous 30 Days: {{.Change}}</p>{{end -}}
<p class="benchmark">Average Sales per Order (all data): {{.Benchmark}}</p></div>
{{- end}}

{{- define "timeseries" -}}
<div id="timeseries" class="chart"><h3>{{.Metric}} Over Time</h3>
{{- if .Points -}}
<svg viewBox="0 0 {{.Width}} {{.Height}}" preserveAspectRatio="none"><polyline fill="none" stroke="#2563eb" stroke-width="1.5" points="{{.Points}}"/></svg>
<p class="axis">{{.First}} to {{.Last}}, {{.Days}} days</p>
{{- end -}}
</div>
{{- end}}

{{- define "topProducts" -}}
<div id="top-products" class="chart"><h3>Top {{.N}} Products by {{.Metric}}</h3>
{{- if .Bars}}<ul class="bars">
{{- range .Bars}}<li><span class="name">{{.Name}}</span><span class="bar" style="width:{{.Width}}%"></span><span class="value">{{.Value}}</span></li>{{end -}}
</ul>{{end -}}
</div>
{{- end}}

{{- define "heatmap" -}}
<div id="heatmap" class="chart"><h3>Sales by Category and Sub-Category</h3>
{{- if .}}<table><thead><tr><th>Category</th><th>Sub-Category</th><th>Sales</th></tr></thead><tbody>
{{- range .}}<tr><td>{{.Category}}</td><td>{{.SubCategory}}</td><td style="background:rgba(37,99,235,{{.Alpha}})">{{.Sales}}</td></tr>{{end -}}
</tbody></table>{{end -}}
</div>
{{- end}}

{{- define "export" -}}
<div id="export">{{range .}}<a href="{{.Href}}" download>Download {{.Label}}</a> {{end}}</div>
{{- end}}
`))

// component exposes a named template as a templ.Component so fragments can
// be patched with datastar and embedded in the page.
func component(t *template.Template, name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return t.ExecuteTemplate(w, name, data)
	})
}

var filterLabels = map[models.Column]string{
	models.ColRegion:      "Region",
	models.ColState:       "State",
	models.ColCategory:    "Category",
	models.ColSubCategory: "Sub-Category",
}

// SignalName maps a filter column to its datastar signal.
func SignalName(col models.Column) string {
	switch col {
	case models.ColRegion:
		return "region"
	case models.ColState:
		return "state"
	case models.ColCategory:
		return "category"
	default:
		return "subCategory"
	}
}

type option struct {
	Value    string
	Selected bool
}

type selectView struct {
	Label   string
	Signal  string
	Options []option
}

type dateInput struct {
	Label, Signal, Value, Min, Max string
}

type filtersView struct {
	Selects []selectView
	Dates   []dateInput
}

func newFiltersView(positions []pipeline.Position, rng, bounds models.DateRange) filtersView {
	var v filtersView
	for _, p := range positions {
		s := selectView{Label: filterLabels[p.Column], Signal: SignalName(p.Column)}
		for _, opt := range append([]string{pipeline.All}, p.Options...) {
			s.Options = append(s.Options, option{Value: opt, Selected: opt == p.Selected})
		}
		v.Selects = append(v.Selects, s)
	}
	lo, hi := dateValue(bounds.From), dateValue(bounds.To)
	v.Dates = []dateInput{
		{Label: "From Date", Signal: "from", Value: dateValue(rng.From), Min: lo, Max: hi},
		{Label: "To Date", Signal: "to", Value: dateValue(rng.To), Min: lo, Max: hi},
	}
	return v
}

// Filters renders the cascading selects and the date inputs.
func Filters(positions []pipeline.Position, rng, bounds models.DateRange) templ.Component {
	return component(fragmentTemplates, "filters", newFiltersView(positions, rng, bounds))
}

func dateValue(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type noticesView struct {
	Validation    string
	DateNotice    string
	NoData        bool
	NoDataMessage string
}

// Notices renders the date-order error, the date domain notice and the
// empty-result warning.
func Notices(snap *services.Snapshot) templ.Component {
	return component(fragmentTemplates, "notices", newNoticesView(snap))
}

func newNoticesView(snap *services.Snapshot) noticesView {
	return noticesView{
		Validation:    snap.Validation,
		DateNotice:    snap.DateNotice,
		NoData:        snap.NoData,
		NoDataMessage: NoDataMessage,
	}
}

type tile struct{ Label, Value string }

type trendView struct{ Class, Change string }

type kpisView struct {
	Tiles     []tile
	Trend     *trendView
	Benchmark string
}

// KPITiles renders the four KPI tiles and the trend and benchmark lines.
func KPITiles(snap *services.Snapshot) templ.Component {
	return component(fragmentTemplates, "kpis", newKPIsView(snap))
}

func newKPIsView(snap *services.Snapshot) kpisView {
	k := snap.KPIs
	v := kpisView{
		Tiles: []tile{
			{"Total Sales", format.Currency(k.TotalSales)},
			{"Quantity Sold", format.Count(k.TotalQuantity)},
			{"Total Profit", format.Currency(k.TotalProfit)},
			{"Margin Rate", format.Percent(k.MarginRate)},
		},
		Benchmark: format.Currency(snap.Benchmark),
	}
	if snap.Trend != nil {
		v.Trend = &trendView{Class: "up", Change: format.Change(*snap.Trend)}
		if *snap.Trend < 0 {
			v.Trend.Class = "down"
		}
	}
	return v
}

type timeSeriesView struct {
	Metric        string
	Width, Height int
	Points        string
	First, Last   string
	Days          int
}

// TimeSeries renders the per-day metric as an SVG line.
func TimeSeries(snap *services.Snapshot) templ.Component {
	return component(fragmentTemplates, "timeseries", newTimeSeriesView(snap))
}

func newTimeSeriesView(snap *services.Snapshot) timeSeriesView {
	v := timeSeriesView{Metric: string(snap.Metric), Width: chartWidth, Height: chartHeight}
	if n := len(snap.TimeSeries); n > 0 {
		values := make([]float64, n)
		for i, d := range snap.TimeSeries {
			values[i] = snap.Metric.Of(d.Totals)
		}
		lo, hi := extent(values)

		points := make([]string, n)
		for i, val := range values {
			x := 0.0
			if n > 1 {
				x = float64(i) / float64(n-1) * chartWidth
			}
			y := chartHeight - scale(val, lo, hi)*chartHeight
			points[i] = fmt.Sprintf("%.1f,%.1f", x, y)
		}
		v.Points = strings.Join(points, " ")
		v.First = snap.TimeSeries[0].OrderDate.Format(dateLayout)
		v.Last = snap.TimeSeries[n-1].OrderDate.Format(dateLayout)
		v.Days = n
	}
	return v
}

type bar struct{ Name, Width, Value string }

type topProductsView struct {
	N      int
	Metric string
	Bars   []bar
}

// TopProducts renders the top products as horizontal bars.
func TopProducts(snap *services.Snapshot) templ.Component {
	return component(fragmentTemplates, "topProducts", newTopProductsView(snap))
}

func newTopProductsView(snap *services.Snapshot) topProductsView {
	v := topProductsView{N: pipeline.TopN, Metric: string(snap.Metric)}
	lo, hi := 0.0, 0.0
	for _, p := range snap.TopProducts {
		lo, hi = math.Min(lo, snap.Metric.Of(p.Totals)), math.Max(hi, snap.Metric.Of(p.Totals))
	}
	for _, p := range snap.TopProducts {
		val := snap.Metric.Of(p.Totals)
		v.Bars = append(v.Bars, bar{
			Name:  p.ProductName,
			Width: fmt.Sprintf("%.1f", scale(val, lo, hi)*100),
			Value: metricValue(snap.Metric, val),
		})
	}
	return v
}

type heatCell struct{ Category, SubCategory, Alpha, Sales string }

// Heatmap renders sales per category and sub-category.
func Heatmap(snap *services.Snapshot) templ.Component {
	return component(fragmentTemplates, "heatmap", heatCells(snap))
}

func heatCells(snap *services.Snapshot) []heatCell {
	hi := 0.0
	for _, c := range snap.Heatmap {
		hi = math.Max(hi, c.Sales)
	}
	cells := make([]heatCell, 0, len(snap.Heatmap))
	for _, c := range snap.Heatmap {
		cells = append(cells, heatCell{
			Category:    c.Category,
			SubCategory: c.SubCategory,
			Alpha:       fmt.Sprintf("%.2f", scale(c.Sales, 0, hi)*0.85+0.05),
			Sales:       format.Currency(c.Sales),
		})
	}
	return cells
}

type exportLink struct{ Href, Label string }

// ExportLinks points the download links at the current selection.
func ExportLinks(params services.QueryParams) templ.Component {
	return component(fragmentTemplates, "export", exportLinks(params))
}

func exportLinks(params services.QueryParams) []exportLink {
	var links []exportLink
	for _, f := range []string{"csv", "xlsx"} {
		q := ExportQuery(params)
		q.Set("format", f)
		links = append(links, exportLink{Href: "/api/export?" + q.Encode(), Label: strings.ToUpper(f)})
	}
	return links
}

// ExportQuery encodes params as /api query string values.
func ExportQuery(p services.QueryParams) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" && v != pipeline.All {
			q.Set(k, v)
		}
	}
	set("region", p.Region)
	set("state", p.State)
	set("category", p.Category)
	set("sub_category", p.SubCategory)
	set("from", p.From)
	set("to", p.To)
	set("metric", p.Metric)
	return q
}

func metricValue(m models.Metric, v float64) string {
	switch m {
	case models.MetricQuantity:
		return format.Count(int(v))
	case models.MetricMarginRate:
		return format.Percent(v)
	case models.MetricSales, models.MetricProfit:
		return format.Currency(v)
	default:
		return format.Number(v)
	}
}

func extent(vs []float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// scale maps v into [0,1] over [lo,hi]. A flat range maps to 1.
func scale(v, lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}
