package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/sources"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	pageTitle     = "Sales Dashboard"
)

type PageHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	profile   string
}

func NewPageHandlers(analytics *services.Analytics, logger *slog.Logger, profile string) *PageHandlers {
	return &PageHandlers{
		analytics: analytics,
		logger:    logger,
		profile:   profile,
	}
}

// banner reports the outcome of a run. Only a missing input file is shown as
// a user-facing error; handled is false for every other failure.
func banner(report *models.Report, err error) (b templates.Banner, handled bool) {
	switch {
	case err == nil:
		return templates.Banner{
			Kind:    templates.BannerSuccess,
			Message: fmt.Sprintf("Loaded %d sales records from the %s data source.", report.RecordCount, report.Profile),
		}, true
	case stderrors.Is(err, sources.ErrSourceNotFound):
		return templates.Banner{
			Kind:    templates.BannerError,
			Message: "Sales data could not be loaded: " + err.Error(),
		}, true
	default:
		return templates.Banner{
			Kind:    templates.BannerError,
			Message: "The sales report could not be built.",
		}, false
	}
}

// page builds the full dashboard view for one run.
func (h *PageHandlers) page(ctx context.Context) (templates.Page, error) {
	report, set, err := h.analytics.Dashboard(ctx)
	b, handled := banner(report, err)
	if !handled {
		return templates.Page{}, err
	}

	p := templates.Page{
		Title:   pageTitle,
		Profile: h.profile,
		Banner:  b,
	}
	if report != nil {
		p.Summary = report.Summary
		p.GeneratedAt = report.GeneratedAt.Format(time.RFC1123)
		p.Charts = templates.ChartViews(set)
		p.Records = recordTable(report)
	}
	return p, nil
}

// recordTable lists the loaded records with one column per summed product.
func recordTable(report *models.Report) templates.RecordTable {
	products := make([]string, len(report.Products))
	for i, pt := range report.Products {
		products[i] = pt.Product
	}
	return templates.NewRecordTable(report.Records, products)
}

func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	p, err := h.page(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard failed", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", noStore)
	if err := templates.Dashboard(p).Render(ctx, w); err != nil {
		h.logger.ErrorContext(ctx, "render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
