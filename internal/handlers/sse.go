package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/pipeline"
	"superstore-dashboard/internal/services"
	"superstore-dashboard/internal/ui/templates"
)

const signalsParam = "datastar"

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// readParams prefers datastar signals and falls back to plain query
// parameters so the stream can be opened without a datastar client.
func readParams(r *http.Request) (services.QueryParams, error) {
	if !r.URL.Query().Has(signalsParam) && r.Method == http.MethodGet {
		return ParamsFromQuery(r.URL.Query()), nil
	}
	var params services.QueryParams
	err := datastar.ReadSignals(r, &params)
	return params, err
}

func renderHTML(r *http.Request, c templ.Component) (string, error) {
	var b strings.Builder
	err := c.Render(r.Context(), &b)
	return b.String(), err
}

// HandleDashboard runs one pipeline pass for the current signals and
// patches every dashboard fragment. Positions that fell back to All and
// dates outside the new bounds are pushed back into the client's signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := readParams(r)
	if err != nil {
		errors.WriteError(w, r, h.logger, errors.ValidationWrap(err, "Invalid signals"))
		return
	}

	sse := datastar.NewSSE(w, r)

	q, err := params.Query()
	if err != nil {
		h.patch(sse, r, templates.Notices(&services.Snapshot{Validation: err.Error()}))
		return
	}

	snap, used := h.dashboard.ComputeWithinBounds(r.Context(), q)
	if q.From != nil && used.From == nil {
		params.From = ""
	}
	if q.To != nil && used.To == nil {
		params.To = ""
	}

	h.patch(sse, r,
		templates.Filters(snap.Filters, snap.Range, snap.Bounds),
		templates.Notices(snap),
		templates.KPITiles(snap),
		templates.TimeSeries(snap),
		templates.TopProducts(snap),
		templates.Heatmap(snap),
		templates.ExportLinks(effectiveParams(params, snap)),
	)

	signals := map[string]any{
		"metric":       string(snap.Metric),
		"from":         params.From,
		"to":           params.To,
		"_timeSeries":  nonNil(snap.TimeSeries),
		"_topProducts": nonNil(snap.TopProducts),
	}
	for _, p := range snap.Filters {
		if p.Reset {
			signals[templates.SignalName(p.Column)] = pipeline.All
		}
	}
	payload, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal dashboard signals", "error", err)
		return
	}
	if err := sse.PatchSignals(payload); err != nil {
		h.logger.Warn("patch signals", "error", err)
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, r *http.Request, components ...templ.Component) {
	for _, c := range components {
		html, err := renderHTML(r, c)
		if err != nil {
			h.logger.Error("render fragment", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.Warn("patch elements", "error", err)
			return
		}
	}
}

// effectiveParams replaces reset selections with All so export links
// match what the dashboard shows.
func effectiveParams(p services.QueryParams, snap *services.Snapshot) services.QueryParams {
	chain := pipeline.CascadeResult{Positions: snap.Filters}.Effective()
	p.Region = chain.Value(models.ColRegion)
	p.State = chain.Value(models.ColState)
	p.Category = chain.Value(models.ColCategory)
	p.SubCategory = chain.Value(models.ColSubCategory)
	p.Metric = string(snap.Metric)
	return p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
