package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// HandleRefresh re-runs the pipeline and patches the banner, the chart grid,
// the summary and the records table, then the signals. A failed run clears
// the charts and the table.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	report, set, err := h.analytics.Dashboard(ctx)
	b, handled := banner(report, err)
	if !handled {
		h.logger.ErrorContext(ctx, "refresh failed", "error", err)
	}

	signals := map[string]any{
		"status":      b.Kind,
		"summary":     "",
		"generatedAt": "",
	}
	var (
		views   []templates.ChartView
		summary string
		records templates.RecordTable
	)
	if err == nil {
		views = templates.ChartViews(set)
		summary = report.Summary
		records = recordTable(report)
		signals["summary"] = report.Summary
		signals["generatedAt"] = report.GeneratedAt.Format(time.RFC1123)
	}

	for _, fragment := range []struct {
		name string
		html func() (string, error)
	}{
		{"banner", func() (string, error) { return templates.String(ctx, templates.BannerFragment(b)) }},
		{"charts", func() (string, error) { return templates.String(ctx, templates.ChartsFragment(views)) }},
		{"summary", func() (string, error) { return templates.String(ctx, templates.SummaryFragment(summary)) }},
		{"records", func() (string, error) { return templates.String(ctx, templates.RecordsFragment(records)) }},
	} {
		html, err := fragment.html()
		if err != nil {
			h.logger.ErrorContext(ctx, "render fragment", "fragment", fragment.name, "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.WarnContext(ctx, "patch elements", "fragment", fragment.name, "error", err)
			return
		}
	}

	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal refresh signals", "error", err)
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		h.logger.WarnContext(ctx, "patch signals", "error", err)
	}
}

// HandleSummary patches only the summary signals, without rendering charts.
func (h *SSEHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	report, err := h.analytics.Run(r.Context())
	b, _ := banner(report, err)

	signals := map[string]any{"status": b.Kind, "summary": ""}
	if err == nil {
		signals["summary"] = report.Summary
		signals["grandTotal"] = services.FormatAmount(report.GrandTotal)
	}

	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal summary signals", "error", err)
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		h.logger.Warn("patch signals", "error", err)
	}
}
