package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"superstore-dashboard/internal/loader"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/observability"
	"superstore-dashboard/internal/pipeline"
)

// Snapshot is everything the presentation layer needs for one
// interaction.
type Snapshot struct {
	Filters     []pipeline.Position       `json:"filters"`
	Bounds      models.DateRange          `json:"date_bounds"`
	Range       models.DateRange          `json:"date_range"`
	Validation  string                    `json:"validation,omitempty"`
	DateNotice  string                    `json:"date_notice,omitempty"`
	FromOutside bool                      `json:"from_outside_bounds,omitempty"`
	ToOutside   bool                      `json:"to_outside_bounds,omitempty"`
	Metric      models.Metric             `json:"metric"`
	RecordCount int                       `json:"record_count"`
	KPIs        models.KPIScalars         `json:"kpis"`
	NoData      bool                      `json:"no_data"`
	TimeSeries  []models.DailyAggregate   `json:"time_series"`
	TopProducts []models.ProductAggregate `json:"top_products"`
	Trend       *float64                  `json:"trend_pct"`
	Benchmark   float64                   `json:"benchmark_sales"`
	Heatmap     []models.HeatmapCell      `json:"heatmap"`

	filtered *models.Table
}

// Filtered returns the fully filtered table behind the snapshot.
func (s *Snapshot) Filtered() *models.Table {
	return s.filtered
}

// Dashboard owns the read-only base table and runs a full pipeline pass
// per query. Passes never share derived state.
type Dashboard struct {
	mu        sync.RWMutex
	base      *models.Table
	benchmark float64
	identity  string
	loadedAt  time.Time

	cache   *loader.Cache
	source  loader.Source
	logger  *slog.Logger
	queries atomic.Int64
}

func NewDashboard(logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		base:   models.NewTable(nil),
		cache:  loader.NewCache(logger),
		logger: logger,
	}
}

// SetData replaces the base table directly, bypassing the loader.
func (d *Dashboard) SetData(records []models.Record) {
	d.setBase(models.NewTable(records), "memory")
}

// Load reads src through the identity-keyed cache and installs the result
// as the base table.
func (d *Dashboard) Load(ctx context.Context, src loader.Source) error {
	table, id, err := d.cache.Get(ctx, src)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.source = src
	d.mu.Unlock()

	d.setBase(table, id)
	return nil
}

// Reload invalidates the current source's cache entry and loads it again.
func (d *Dashboard) Reload(ctx context.Context) error {
	d.mu.RLock()
	src, id := d.source, d.identity
	d.mu.RUnlock()

	if src == nil {
		return fmt.Errorf("no data source configured")
	}
	d.cache.Invalidate(id)
	return d.Load(ctx, src)
}

func (d *Dashboard) setBase(table *models.Table, identity string) {
	benchmark := pipeline.Benchmark(table)

	d.mu.Lock()
	d.base = table
	d.benchmark = benchmark
	d.identity = identity
	d.loadedAt = time.Now()
	d.mu.Unlock()

	d.logger.Info("base table installed",
		"identity", identity,
		"records", table.Len(),
		"benchmark_sales", benchmark,
	)
}

func (d *Dashboard) current() (*models.Table, float64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.base, d.benchmark
}

// Base returns the unfiltered table.
func (d *Dashboard) Base() *models.Table {
	base, _ := d.current()
	return base
}

// Benchmark returns the mean sales of the unfiltered table.
func (d *Dashboard) Benchmark() float64 {
	_, benchmark := d.current()
	return benchmark
}

// Options runs only the cascade and reports the per-position options and
// the selectable date bounds.
func (d *Dashboard) Options(chain pipeline.FilterChain) (pipeline.CascadeResult, models.DateRange) {
	base, _ := d.current()
	cascade := pipeline.Cascade(base, chain)
	bounds, _ := pipeline.DateBounds(cascade.Table, base)
	return cascade, bounds
}

// Compute runs a full pass: cascade, date range, KPIs, views, trend and
// heatmap.
func (d *Dashboard) Compute(ctx context.Context, q Query) *Snapshot {
	_, span := observability.StartSpan(ctx, "dashboard.compute")
	defer func() {
		span.Finish()
		d.logger.Debug("pipeline pass", "span", span)
	}()
	d.queries.Add(1)

	base, benchmark := d.current()
	metric := q.Metric
	if metric == "" {
		metric = models.MetricSales
	}

	cascade := pipeline.Cascade(base, q.Chain)
	bounds, hasBounds := pipeline.DateBounds(cascade.Table, base)

	rng := bounds
	if q.From != nil {
		rng.From = models.Day(*q.From)
	}
	if q.To != nil {
		rng.To = models.Day(*q.To)
	}

	filtered := pipeline.Narrow(cascade.Table, rng.From, rng.To)
	snap := &Snapshot{
		Filters:     cascade.Positions,
		Bounds:      bounds,
		Range:       rng,
		Validation:  pipeline.ValidateRange(rng),
		Metric:      metric,
		RecordCount: filtered.Len(),
		KPIs:        pipeline.Aggregate(filtered),
		Benchmark:   benchmark,
		Heatmap:     pipeline.Heatmap(filtered),
		filtered:    filtered,
	}

	if hasBounds {
		snap.FromOutside, snap.ToOutside = pipeline.OutsideBounds(rng, bounds)
		if snap.FromOutside || snap.ToOutside {
			snap.DateNotice = pipeline.DomainMessage(bounds)
		}
	}

	views, ok := pipeline.BuildViews(filtered, metric)
	snap.NoData = !ok
	if ok {
		snap.TimeSeries = views.TimeSeries
		snap.TopProducts = views.TopProducts
		trend := pipeline.Trend(cascade.Table, rng.From, snap.KPIs.TotalSales)
		snap.Trend = &trend
	}

	span.SetTag("records", fmt.Sprint(snap.RecordCount))
	span.SetTag("metric", string(metric))
	if snap.Validation != "" {
		span.SetTag("validation", snap.Validation)
	}
	if snap.DateNotice != "" {
		span.SetTag("date_notice", snap.DateNotice)
	}
	return snap
}

// ComputeWithinBounds runs Compute and, when a requested date falls outside
// the selectable domain, drops it and runs again against the default bound.
// The returned query carries the dates actually used.
func (d *Dashboard) ComputeWithinBounds(ctx context.Context, q Query) (*Snapshot, Query) {
	snap := d.Compute(ctx, q)
	if !snap.FromOutside && !snap.ToOutside {
		return snap, q
	}

	d.logger.Debug("resetting dates outside bounds",
		"from_outside", snap.FromOutside,
		"to_outside", snap.ToOutside,
		"bounds_from", snap.Bounds.From,
		"bounds_to", snap.Bounds.To,
	)
	if snap.FromOutside {
		q.From = nil
	}
	if snap.ToOutside {
		q.To = nil
	}
	return d.Compute(ctx, q), q
}

// Stats reports dataset and usage counters for the admin endpoint.
func (d *Dashboard) Stats() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := map[string]any{
		"record_count":    d.base.Len(),
		"identity":        d.identity,
		"loaded_at":       d.loadedAt,
		"benchmark_sales": d.benchmark,
		"queries":         d.queries.Load(),
		"cached_datasets": d.cache.Len(),
	}
	if lo, hi, ok := d.base.DateExtent(); ok {
		stats["first_order"] = lo.Format(dateLayout)
		stats["last_order"] = hi.Format(dateLayout)
	}
	return stats
}

// PurgeCache drops every cached dataset. The installed base table stays.
func (d *Dashboard) PurgeCache() int {
	return d.cache.Purge()
}
