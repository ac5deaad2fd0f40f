package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/export"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/pipeline"
	"superstore-dashboard/internal/services"
)

const (
	cacheMaxAge   = "private, max-age=60"
	reloadTimeout = 2 * time.Minute
)

var Version = "1.0.0"

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// ParamsFromQuery reads dashboard inputs from a query string.
func ParamsFromQuery(q url.Values) services.QueryParams {
	return services.QueryParams{
		Region:      q.Get("region"),
		State:       q.Get("state"),
		Category:    q.Get("category"),
		SubCategory: q.Get("sub_category"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		Metric:      q.Get("metric"),
	}
}

func (h *APIHandlers) query(w http.ResponseWriter, r *http.Request) (services.Query, bool) {
	q, err := ParamsFromQuery(r.URL.Query()).Query()
	if err != nil {
		errors.WriteError(w, r, h.logger, errors.ValidationWrap(err, "Invalid query parameters"))
		return services.Query{}, false
	}
	return q, true
}

func (h *APIHandlers) compute(w http.ResponseWriter, r *http.Request) (*services.Snapshot, bool) {
	q, ok := h.query(w, r)
	if !ok {
		return nil, false
	}
	return h.dashboard.Compute(r.Context(), q), true
}

func cached() map[string]string {
	return map[string]string{"Cache-Control": cacheMaxAge}
}

type optionsResponse struct {
	Filters    []pipeline.Position `json:"filters"`
	DateBounds models.DateRange    `json:"date_bounds"`
	Metrics    []models.Metric     `json:"metrics"`
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	cascade, bounds := h.dashboard.Options(q.Chain)

	errors.WriteSuccessWithHeaders(w, optionsResponse{
		Filters:    cascade.Positions,
		DateBounds: bounds,
		Metrics:    models.Metrics,
	}, cached())
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, snap, cached())
}

type kpiResponse struct {
	KPIs       models.KPIScalars `json:"kpis"`
	Trend      *float64          `json:"trend_pct"`
	Benchmark  float64           `json:"benchmark_sales"`
	Range      models.DateRange  `json:"date_range"`
	Validation string            `json:"validation,omitempty"`
	DateNotice string            `json:"date_notice,omitempty"`
	NoData     bool              `json:"no_data"`
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, kpiResponse{
		KPIs:       snap.KPIs,
		Trend:      snap.Trend,
		Benchmark:  snap.Benchmark,
		Range:      snap.Range,
		Validation: snap.Validation,
		DateNotice: snap.DateNotice,
		NoData:     snap.NoData,
	}, cached())
}

type viewsResponse struct {
	pipeline.Views
	NoData bool `json:"no_data"`
}

func (h *APIHandlers) HandleViews(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, viewsResponse{
		Views: pipeline.Views{
			Metric:      snap.Metric,
			TimeSeries:  snap.TimeSeries,
			TopProducts: snap.TopProducts,
		},
		NoData: snap.NoData,
	}, cached())
}

func (h *APIHandlers) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.compute(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, snap.Heatmap, cached())
}

func (h *APIHandlers) HandleBenchmark(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, map[string]float64{
		"benchmark_sales": h.dashboard.Benchmark(),
	}, cached())
}

// HandleExport downloads the filtered table as csv (default) or xlsx.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		errors.WriteError(w, r, h.logger, errors.ValidationWrap(err, "Invalid export format"))
		return
	}
	snap, ok := h.compute(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName()))
	w.Header().Set("Cache-Control", "no-store")
	if err := export.Write(w, f, snap.Filtered()); err != nil {
		// Headers are already sent; the client sees a truncated file.
		h.logger.Error("export failed", "format", f, "records", snap.RecordCount, "error", err)
		return
	}
	h.logger.Info("export written", "format", f, "records", snap.RecordCount)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.dashboard.Stats()
	status := "healthy"
	if n, _ := stats["record_count"].(int); n == 0 {
		status = "degraded"
	}

	errors.WriteSuccessWithHeaders(w, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
		"records":   stats["record_count"],
	}, map[string]string{"Cache-Control": "no-store"})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.dashboard.Stats(), map[string]string{"Cache-Control": "no-store"})
}

// HandleReload drops the cached dataset and reads the source again.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reloadTimeout)
	defer cancel()

	if err := h.dashboard.Reload(ctx); err != nil {
		errors.WriteError(w, r, h.logger, errors.Wrap(err, errors.CodeServiceUnavail, "Reload failed"))
		return
	}
	errors.WriteSuccess(w, h.dashboard.Stats())
}
