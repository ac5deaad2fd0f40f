// Package templates renders the dashboard page and the fragments patched
// into it over SSE.
package templates

import (
	"encoding/json"
	"html/template"

	"github.com/a-h/templ"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/pipeline"
	"superstore-dashboard/internal/services"
)

const (
	Title       = "SuperStore KPI Dashboard"
	datastarCDN = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
	refresh     = "@get('/sse/dashboard')"
)

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f8fafc;color:#0f172a}
header{padding:1rem 2rem;background:#0f172a;color:#f8fafc}
main{display:grid;grid-template-columns:260px 1fr;gap:1.5rem;padding:1.5rem 2rem}
.filters label{display:block;margin-bottom:.75rem;font-size:.85rem}
.filters select,.filters input{display:block;width:100%;margin-top:.25rem}
.kpis{display:grid;grid-template-columns:repeat(4,1fr);gap:1rem}
.tile{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 2px #0002}
.tile .label{display:block;font-size:.8rem;color:#64748b}
.tile .value{font-size:1.5rem;font-weight:600}
.trend.up{color:#15803d}.trend.down{color:#b91c1c}
.notice.error{color:#b91c1c}.notice.warning{color:#b45309}
.chart{background:#fff;border-radius:8px;padding:1rem;margin-top:1rem}
.chart svg{width:100%;height:220px}
.bars{list-style:none;padding:0}
.bars li{display:grid;grid-template-columns:40% 1fr 8rem;gap:.5rem;align-items:center;margin:.25rem 0}
.bars .bar{display:block;height:.8rem;background:#2563eb;min-width:2px}
`

var pageTemplate = template.Must(template.Must(fragmentTemplates.Clone()).Parse(`
{{- define "page" -}}
<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>` + styles + `</style>
<script type="module" src="` + datastarCDN + `"></script>
</head>
<body data-signals="{{.Signals}}">
<header><h1>{{.Title}}</h1></header>
<main>
<aside data-on:change="` + refresh + `">
<h2>Filters</h2>
{{template "filters" .Filters}}
<fieldset><legend>Metric</legend>
{{- range .Metrics}}<label><input type="radio" name="metric" value="{{.Value}}" data-bind="metric"{{if .Checked}} checked{{end}}> {{.Value}}</label>{{end -}}
</fieldset>
{{template "export" .Export}}
</aside>
<section>
{{template "notices" .Notices}}
{{template "kpis" .KPIs}}
{{template "timeseries" .TimeSeries}}
{{template "topProducts" .TopProducts}}
{{template "heatmap" .Heatmap}}
</section>
</main>
</body>
</html>
{{- end}}
`))

// InitialSignals seeds the datastar store. Keys prefixed with an
// underscore stay in the browser.
func InitialSignals(metric models.Metric) map[string]any {
	return map[string]any{
		"region":       pipeline.All,
		"state":        pipeline.All,
		"category":     pipeline.All,
		"subCategory":  pipeline.All,
		"from":         "",
		"to":           "",
		"metric":       string(metric),
		"_timeSeries":  []any{},
		"_topProducts": []any{},
	}
}

type radio struct {
	Value   string
	Checked bool
}

type pageView struct {
	Title       string
	Signals     string
	Filters     filtersView
	Metrics     []radio
	Export      []exportLink
	Notices     noticesView
	KPIs        kpisView
	TimeSeries  timeSeriesView
	TopProducts topProductsView
	Heatmap     []heatCell
}

// Dashboard renders the full page from an initial snapshot. Every control
// change re-requests /sse/dashboard, which patches the fragments by id.
func Dashboard(snap *services.Snapshot) templ.Component {
	signals, _ := json.Marshal(InitialSignals(snap.Metric))

	v := pageView{
		Title:       Title,
		Signals:     string(signals),
		Filters:     newFiltersView(snap.Filters, snap.Range, snap.Bounds),
		Export:      exportLinks(services.QueryParams{Metric: string(snap.Metric)}),
		Notices:     newNoticesView(snap),
		KPIs:        newKPIsView(snap),
		TimeSeries:  newTimeSeriesView(snap),
		TopProducts: newTopProductsView(snap),
		Heatmap:     heatCells(snap),
	}
	for _, m := range models.Metrics {
		v.Metrics = append(v.Metrics, radio{Value: string(m), Checked: m == snap.Metric})
	}
	return component(pageTemplate, "page", v)
}
