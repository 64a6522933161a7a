package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sources"
	"sales-dashboard/internal/trend"
)

const defaultRollingWindow = 4

// Aggregator derives the report views from a loaded dataset.
type Aggregator interface {
	Aggregate(ctx context.Context, ds *models.Dataset) (*models.Report, error)
}

// ChartRenderer draws the report figures.
type ChartRenderer interface {
	RenderAll(ctx context.Context, report *models.Report) (*charts.Charts, error)
	Render(name string, report *models.Report) (charts.Chart, error)
}

type Analytics struct {
	mu         sync.RWMutex
	last       *models.Report
	lastRunAt  time.Time
	lastErr    string
	lastTook   time.Duration
	source     sources.Source
	aggregator Aggregator
	renderer   ChartRenderer
	logger     *slog.Logger
	now        func() time.Time

	runs             atomic.Int64
	failures         atomic.Int64
	missingSource    atomic.Int64
	recordsProcessed atomic.Int64

	metrics *pipelineMetrics
}

type Option func(*Analytics)

func WithAggregator(agg Aggregator) Option {
	return func(a *Analytics) { a.aggregator = agg }
}

func WithRenderer(r ChartRenderer) Option {
	return func(a *Analytics) { a.renderer = r }
}

func WithRollingWindow(weeks int) Option {
	return func(a *Analytics) { a.aggregator = NewAggregator(weeks) }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analytics) { a.now = now }
}

func NewAnalytics(src sources.Source, logger *slog.Logger, opts ...Option) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analytics{
		source:     src,
		aggregator: NewAggregator(defaultRollingWindow),
		logger:     logger,
		now:        time.Now,
		metrics:    newPipelineMetrics(logger),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.renderer == nil {
		a.renderer = charts.NewRenderer(logger)
	}
	return a
}

// Run executes load, aggregate, trend and summary in order. A missing input
// file stops the run before any computation and is returned wrapped around
// sources.ErrSourceNotFound.
func (a *Analytics) Run(ctx context.Context) (*models.Report, error) {
	start := a.now()
	ctx, span := observability.StartSpan(ctx, "analytics.run")

	report, err := a.run(ctx)

	observability.EndSpan(span, err)
	a.record(ctx, report, err, a.now().Sub(start))
	return report, err
}

// Dashboard runs the pipeline and renders the charts for it.
func (a *Analytics) Dashboard(ctx context.Context) (*models.Report, *charts.Charts, error) {
	report, err := a.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := observability.StartSpan(ctx, "analytics.render")
	out, err := a.renderer.RenderAll(ctx, report)
	observability.EndSpan(span, err)
	if err != nil {
		a.logger.ErrorContext(ctx, "chart rendering failed", "error", err)
		return nil, nil, fmt.Errorf("render charts: %w", err)
	}
	return report, out, nil
}

// Chart runs the pipeline and renders the named chart only.
func (a *Analytics) Chart(ctx context.Context, name string) (charts.Chart, error) {
	report, err := a.Run(ctx)
	if err != nil {
		return charts.Chart{}, err
	}

	_, span := observability.StartSpan(ctx, "analytics.render", attribute.String("chart", name))
	ch, err := a.renderer.Render(name, report)
	observability.EndSpan(span, err)
	if err != nil {
		return charts.Chart{}, fmt.Errorf("render chart: %w", err)
	}
	return ch, nil
}

func (a *Analytics) run(ctx context.Context) (*models.Report, error) {
	loadCtx, span := observability.StartSpan(ctx, "analytics.load")
	ds, err := a.source.Load(loadCtx)
	if ds != nil {
		span.SetAttributes(attribute.Int("records", len(ds.Records)))
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	a.logger.DebugContext(ctx, "dataset loaded", "profile", ds.Profile, "records", len(ds.Records))

	aggCtx, span := observability.StartSpan(ctx, "analytics.aggregate")
	report, err := a.aggregator.Aggregate(aggCtx, ds)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	_, span = observability.StartSpan(ctx, "analytics.trend")
	report.Trend, err = trend.Weekly(report.Weekly)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}

	report.Summary = Summarize(report)
	report.GeneratedAt = a.now().UTC()
	return report, nil
}

func (a *Analytics) record(ctx context.Context, report *models.Report, err error, took time.Duration) {
	a.runs.Add(1)

	result := "ok"
	switch {
	case err == nil:
		a.recordsProcessed.Store(int64(report.RecordCount))
		a.logger.InfoContext(ctx, "analytics run complete",
			"profile", report.Profile,
			"records", report.RecordCount,
			"weeks", len(report.Weekly),
			"duration", took,
		)
	case errors.Is(err, sources.ErrSourceNotFound):
		result = "missing_source"
		a.missingSource.Add(1)
		a.logger.WarnContext(ctx, "input file not found", "error", err)
	default:
		result = "error"
		a.failures.Add(1)
		a.logger.ErrorContext(ctx, "analytics run failed", "error", err)
	}

	a.metrics.observe(ctx, result, took, report)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastRunAt = a.now()
	a.lastTook = took
	if err != nil {
		a.lastErr = err.Error()
		return
	}
	a.lastErr = ""
	a.last = report
}

// Latest returns the most recent successful report.
func (a *Analytics) Latest() (*models.Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last, a.last != nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	stats := map[string]any{
		"runs":           a.runs.Load(),
		"failures":       a.failures.Load(),
		"missing_source": a.missingSource.Load(),
		"record_count":   a.recordsProcessed.Load(),
		"last_run_at":    a.lastRunAt,
		"last_duration":  a.lastTook.String(),
		"last_error":     a.lastErr,
	}
	a.mu.RUnlock()

	if last, ok := a.Latest(); ok {
		stats["profile"] = last.Profile
		stats["weeks"] = len(last.Weekly)
		stats["days"] = len(last.Daily)
		stats["products"] = len(last.Products)
		stats["last_generated_at"] = last.GeneratedAt
	}
	return stats
}

type pipelineMetrics struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
	records  metric.Int64Counter
}

func newPipelineMetrics(logger *slog.Logger) *pipelineMetrics {
	meter := observability.Meter()
	m := &pipelineMetrics{}
	var err error

	if m.runs, err = meter.Int64Counter("dashboard.pipeline.runs",
		metric.WithDescription("Pipeline runs by result")); err != nil {
		logger.Warn("create runs counter", "error", err)
	}
	if m.duration, err = meter.Float64Histogram("dashboard.pipeline.duration",
		metric.WithDescription("Pipeline run duration"),
		metric.WithUnit("s")); err != nil {
		logger.Warn("create duration histogram", "error", err)
	}
	if m.records, err = meter.Int64Counter("dashboard.pipeline.records",
		metric.WithDescription("Sales records loaded")); err != nil {
		logger.Warn("create records counter", "error", err)
	}
	return m
}

func (m *pipelineMetrics) observe(ctx context.Context, result string, took time.Duration, report *models.Report) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	if m.runs != nil {
		m.runs.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, took.Seconds(), attrs)
	}
	if m.records != nil && report != nil {
		m.records.Add(ctx, int64(report.RecordCount))
	}
}

// DefaultAggregator computes every view with the aggregate package.
type DefaultAggregator struct {
	rollingWindow int
}

func NewAggregator(rollingWindow int) *DefaultAggregator {
	if rollingWindow < 1 {
		rollingWindow = defaultRollingWindow
	}
	return &DefaultAggregator{rollingWindow: rollingWindow}
}

func (d *DefaultAggregator) Aggregate(ctx context.Context, ds *models.Dataset) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	weekly := aggregate.WeeklyTotals(ds.Records)
	daily, ref := aggregate.DailyDeviations(ds.Records, ds.DeviationBase)

	var correlation models.CorrelationMatrix
	if ds.Correlation != nil {
		correlation = *ds.Correlation
	} else {
		correlation = aggregate.Correlate(ds.Records, ds.ProductColumns)
	}

	grand := decimal.Zero
	for _, r := range ds.Records {
		grand = grand.Add(decimal.NewFromFloat(r.Amount))
	}

	return &models.Report{
		Profile:       ds.Profile,
		RecordCount:   len(ds.Records),
		GrandTotal:    grand,
		Weekly:        weekly,
		Rolling:       aggregate.RollingAverage(weekly, d.rollingWindow),
		Daily:         daily,
		DeviationBase: ds.DeviationBase,
		ReferenceAvg:  ref,
		Holidays:      aggregate.SplitHolidays(ds.Records, ds.HolidayRule),
		Correlation:   correlation,
		Products:      aggregate.ProductTotals(ds.Records, ds.ProductColumns),
		Revenue:       aggregate.ProductRevenue(ds.Records, ds.Prices),
		Records:       ds.Records,
	}, nil
}
