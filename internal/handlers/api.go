package handlers

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/sources"
	"sales-dashboard/internal/trend"
)

const noStore = "no-store"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// pipelineError maps a failed run to the API error taxonomy.
func pipelineError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, sources.ErrSourceNotFound):
		return errors.SourceNotFound(err)
	case stderrors.Is(err, sources.ErrInvalidData), stderrors.Is(err, trend.ErrInsufficientPoints):
		return errors.InvalidData(err)
	default:
		return errors.InternalWrap(err, "Failed to build sales report")
	}
}

func writePipelineError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errors.WriteError(r.Context(), w, logger, pipelineError(err))
}

// report runs the pipeline for one request. On failure the error response is
// already written.
func (h *APIHandlers) report(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	report, err := h.analytics.Run(r.Context())
	if err != nil {
		writePipelineError(w, r, h.logger, err)
		return nil, false
	}
	return report, true
}

func (h *APIHandlers) HandleWeeklySales(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	data := map[string]any{
		"weekly":  report.Weekly,
		"rolling": report.Rolling,
		"trend":   report.Trend,
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleDailyDeviation(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	data := map[string]any{
		"base":           report.DeviationBase,
		"reference_mean": report.ReferenceAvg,
		"days":           report.Daily,
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleHolidaySplit(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	data := map[string]any{
		"holiday":       report.Holidays.Holiday,
		"non_holiday":   report.Holidays.NonHoliday,
		"total":         report.Holidays.Total(),
		"holiday_share": report.Holidays.HolidayShare(),
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	errors.WriteSuccessWithHeaders(w, report.Correlation, map[string]string{"Cache-Control": noStore})
}

// HandleProducts serves the per-product totals, in product column order.
func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	products := report.Products
	if products == nil {
		products = []models.ProductTotal{}
	}
	data := map[string]any{
		"products": products,
		"revenue":  report.Revenue,
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	data := map[string]any{
		"profile":         report.Profile,
		"record_count":    report.RecordCount,
		"grand_total":     report.GrandTotal,
		"summary":         report.Summary,
		"product_revenue": report.Revenue,
		"generated_at":    report.GeneratedAt,
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleWorkbook(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report); err != nil {
		errors.WriteError(r.Context(), w, h.logger, errors.InternalWrap(err, "Failed to build workbook"))
		return
	}

	filename := "sales-report-" + report.Profile + "-" + report.GeneratedAt.Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", noStore)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write workbook", "error", err)
	}
}

// HandleChart serves a single chart as PNG.
func (h *APIHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !slices.Contains(charts.Names, name) {
		errors.WriteError(r.Context(), w, h.logger, errors.NotFound("Unknown chart: "+name))
		return
	}

	ch, err := h.analytics.Chart(r.Context(), name)
	if err != nil {
		writePipelineError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(ch.PNG)))
	w.Header().Set("Cache-Control", noStore)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(ch.PNG); err != nil {
		h.logger.Warn("write chart", "chart", name, "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
