// Package templates holds the dashboard page and the fragments patched into it
// over SSE.
package templates

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/models"
)

const (
	BannerSuccess = "success"
	BannerError   = "error"
)

// Element ids shared by the page and the SSE fragments.
const (
	BannerID  = "status-banner"
	ChartsID  = "charts"
	SummaryID = "summary"
	RecordsID = "records"
)

type Banner struct {
	Kind    string
	Message string
}

type ChartView struct {
	Name  string
	Title string
	Src   string
}

// RecordTable is the loaded sales table as display strings.
type RecordTable struct {
	Columns []string
	Rows    [][]string
}

type Page struct {
	Title       string
	Profile     string
	Banner      Banner
	Charts      []ChartView
	Summary     string
	Records     RecordTable
	GeneratedAt string
}

// Signals is the Datastar signal set the page starts with.
func (p Page) Signals() string {
	b, _ := json.Marshal(map[string]any{
		"summary":     p.Summary,
		"generatedAt": p.GeneratedAt,
		"status":      p.Banner.Kind,
	})
	return string(b)
}

// ChartViews converts rendered charts to page order image views.
func ChartViews(c *charts.Charts) []ChartView {
	if c == nil {
		return nil
	}
	views := make([]ChartView, 0, len(charts.Names))
	for _, ch := range c.All() {
		views = append(views, ChartView{
			Name:  ch.Name,
			Title: ch.Title,
			Src:   ch.DataURI(),
		})
	}
	return views
}

// NewRecordTable lays out records as date, day, amount and holiday columns
// followed by one column per product.
func NewRecordTable(records []models.SalesRecord, products []string) RecordTable {
	t := RecordTable{
		Columns: append([]string{"Date", "Day", "Amount", "Holiday"}, products...),
		Rows:    make([][]string, 0, len(records)),
	}
	for _, r := range records {
		row := make([]string, 0, len(t.Columns))

		layout := "2006-01-02"
		if h, m, s := r.Timestamp.Clock(); h != 0 || m != 0 || s != 0 {
			layout = "2006-01-02 15:04"
		}
		day := r.DayName
		if day == "" {
			day = r.Timestamp.Weekday().String()
		}
		holiday := ""
		if r.Holiday != nil {
			holiday = "no"
			if *r.Holiday {
				holiday = "yes"
			}
		}
		row = append(row, r.Timestamp.Format(layout), day, strconv.FormatFloat(r.Amount, 'f', 2, 64), holiday)

		for _, p := range products {
			row = append(row, strconv.FormatFloat(r.Products[p], 'f', -1, 64))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// String renders c to a string, for SSE patches.
func String(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
