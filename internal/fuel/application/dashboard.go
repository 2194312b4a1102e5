package application

import (
	"context"
	"errors"
	"time"

	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/fuel/query"
	"fuel-registry/internal/observability/metrics"
)

// SnapshotSource loads the current registry snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (fuel.Snapshot, error)
}

// DashboardView is the render-ready dashboard: table rows, summary cards and
// chart series. Stats, Trend, LastUpdated and History are nil when undefined.
type DashboardView struct {
	Variant     fuel.Variant        `json:"variant"`
	State       query.ViewState     `json:"state"`
	Total       int                 `json:"total"`
	Rows        []fuel.Record       `json:"rows"`
	Stats       *query.Stats        `json:"stats"`
	Trend       *query.TrendSummary `json:"trend"`
	LastUpdated *fuel.Record        `json:"lastUpdated"`
	PriceChart  query.ChartSeries   `json:"priceChart"`
	Selected    *fuel.Record        `json:"selected"`
	History     *query.ChartSeries  `json:"history"`
	Currency    string              `json:"currency"`
	Unit        string              `json:"unit"`
	AsOf        time.Time           `json:"asOf"`
}

// Dashboard computes dashboard views from fresh snapshots.
type Dashboard struct {
	source     SnapshotSource
	variant    fuel.Variant
	windowDays int
	currency   string
	unit       string
}

// DashboardOption customizes the dashboard.
type DashboardOption func(*Dashboard)

// WithTrendWindow sets the trend lookback in days.
func WithTrendWindow(days int) DashboardOption {
	return func(d *Dashboard) {
		if days > 0 {
			d.windowDays = days
		}
	}
}

// WithCurrency sets the currency label and price unit shown with prices.
func WithCurrency(currency, unit string) DashboardOption {
	return func(d *Dashboard) {
		d.currency = currency
		d.unit = unit
	}
}

// NewDashboard constructs a dashboard.
func NewDashboard(source SnapshotSource, variant fuel.Variant, opts ...DashboardOption) (*Dashboard, error) {
	if source == nil {
		return nil, errors.New("fuel: nil snapshot source")
	}
	d := &Dashboard{
		source:     source,
		variant:    variant,
		windowDays: query.DefaultTrendWindowDays,
		currency:   "Rs.",
		unit:       "/L",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Variant returns the schema variant the dashboard renders.
func (d *Dashboard) Variant() fuel.Variant {
	return d.variant
}

// Currency returns the currency label and price unit.
func (d *Dashboard) Currency() (label, unit string) {
	return d.currency, d.unit
}

// SearchFields returns the fields the free-text filter applies to.
func (d *Dashboard) SearchFields() []fuel.Field {
	return d.variant.SearchableFields()
}

// Rows returns the filtered and sorted rows plus the stats over them.
func (d *Dashboard) Rows(ctx context.Context, state query.ViewState) ([]fuel.Record, *query.Stats, error) {
	snapshot, err := d.source.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	rows := query.Apply(snapshot.Records(), state, d.SearchFields())
	stats, err := query.Aggregate(rows)
	if err != nil {
		return rows, nil, nil
	}
	return rows, &stats, nil
}

// Build computes the dashboard for a view state. Summary cards cover the
// whole registry; the table covers the filtered and sorted rows.
func (d *Dashboard) Build(ctx context.Context, state query.ViewState, asOf time.Time) (view *DashboardView, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveQuery(result, time.Since(start))
	}()

	snapshot, err := d.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all := snapshot.Records()
	metrics.SetSnapshotRecords(len(all))

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	view = &DashboardView{
		Variant:    d.variant,
		State:      state,
		Total:      len(all),
		Rows:       query.Apply(all, state, d.SearchFields()),
		PriceChart: query.CurrentPriceSeries(all),
		Currency:   d.currency,
		Unit:       d.unit,
		AsOf:       asOf,
	}
	if stats, err := query.Aggregate(all); err == nil {
		view.Stats = &stats
	}
	if trend, ok := query.AverageTrend(all, d.windowDays, asOf); ok {
		view.Trend = &trend
	}
	if latest, ok := query.MostRecentlyUpdated(all); ok {
		view.LastUpdated = &latest
	}
	if selected, ok := snapshot.Find(state.SelectedID); ok {
		history := query.HistorySeries(selected)
		view.Selected = &selected
		view.History = &history
	}
	return view, nil
}
