package templates

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/models"
)

func TestDashboard_Render(t *testing.T) {
	p := Page{
		Title:   "Sales Dashboard",
		Profile: "inline",
		Banner:  Banner{Kind: BannerSuccess, Message: "Loaded 21 sales records."},
		Charts: []ChartView{
			{Name: charts.NameTrend, Title: "Weekly sales", Src: "data:image/png;base64,AAAA"},
		},
		Summary:     "Total sales <reached> 10.",
		Records:     RecordTable{Columns: []string{"Date", "Amount"}, Rows: [][]string{{"2024-01-01", "214.00"}}},
		GeneratedAt: "Mon, 01 Jan 2024 12:00:00 UTC",
	}

	html, err := String(context.Background(), Dashboard(p))
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Sales Dashboard</title>")
	assert.Contains(t, html, `id="`+BannerID+`"`)
	assert.Contains(t, html, `class="banner banner-success"`)
	assert.Contains(t, html, `src="data:image/png;base64,AAAA"`)
	assert.Contains(t, html, "Total sales &lt;reached&gt; 10.")
	assert.Contains(t, html, `data-on-click="@get('/sse/refresh')"`)
	assert.Contains(t, html, `id="chart-trend"`)
	assert.Contains(t, html, `id="`+RecordsID+`"`)
	assert.Contains(t, html, "<td>214.00</td>")
	assert.Contains(t, html, `data-signals="{&#34;generatedAt&#34;:`)
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
}

func TestFragments(t *testing.T) {
	ctx := context.Background()

	banner, err := String(ctx, BannerFragment(Banner{Kind: BannerError, Message: "missing data/sales.csv"}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(banner, `<div id="status-banner"`))
	assert.Contains(t, banner, "banner-error")

	empty, err := String(ctx, ChartsFragment(nil))
	require.NoError(t, err)
	assert.Contains(t, empty, `id="`+ChartsID+`"`)
	assert.NotContains(t, empty, "<img")

	summary, err := String(ctx, SummaryFragment("hello"))
	require.NoError(t, err)
	assert.Contains(t, summary, `id="`+SummaryID+`"`)
	assert.Contains(t, summary, "hello")

	records, err := String(ctx, RecordsFragment(RecordTable{}))
	require.NoError(t, err)
	assert.Contains(t, records, `id="`+RecordsID+`"`)
	assert.Contains(t, records, "No records loaded.")
	assert.NotContains(t, records, "<table>")
}

func TestNewRecordTable(t *testing.T) {
	holiday := true
	records := []models.SalesRecord{
		{Timestamp: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), Amount: 246, DayName: "Sábado", Products: map[string]float64{"A": 95, "B": 109.5}},
		{Timestamp: time.Date(2024, 3, 4, 17, 40, 0, 0, time.UTC), Amount: 25.5, Holiday: &holiday},
	}

	table := NewRecordTable(records, []string{"A", "B"})
	assert.Equal(t, []string{"Date", "Day", "Amount", "Holiday", "A", "B"}, table.Columns)
	assert.Equal(t, [][]string{
		{"2024-01-06", "Sábado", "246.00", "", "95", "109.5"},
		{"2024-03-04 17:40", "Monday", "25.50", "yes", "0", "0"},
	}, table.Rows)

	html, err := String(context.Background(), RecordsFragment(table))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(html, "<tr>"))
	assert.Contains(t, html, "<th>Holiday</th>")
	assert.Contains(t, html, "<td>Sábado</td>")
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := String(ctx, SummaryFragment("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPage_Signals(t *testing.T) {
	p := Page{Banner: Banner{Kind: BannerError}, Summary: "s", GeneratedAt: "g"}

	var signals map[string]string
	require.NoError(t, json.Unmarshal([]byte(p.Signals()), &signals))
	assert.Equal(t, map[string]string{"summary": "s", "generatedAt": "g", "status": BannerError}, signals)
}

func TestChartViews(t *testing.T) {
	assert.Nil(t, ChartViews(nil))

	set := &charts.Charts{
		Trend:       charts.Chart{Name: charts.NameTrend, Title: "Trend", PNG: []byte{1}},
		Deviation:   charts.Chart{Name: charts.NameDeviation, Title: "Deviation", PNG: []byte{2}},
		Holiday:     charts.Chart{Name: charts.NameHoliday, Title: "Holiday", PNG: []byte{3}},
		Correlation: charts.Chart{Name: charts.NameCorrelation, Title: "Correlation", PNG: []byte{4}},
		Products:    charts.Chart{Name: charts.NameProducts, Title: "Products", PNG: []byte{5}},
	}
	views := ChartViews(set)
	require.Len(t, views, len(charts.Names))
	assert.Equal(t, charts.NameTrend, views[0].Name)
	assert.Equal(t, charts.NameProducts, views[4].Name)
	assert.True(t, strings.HasPrefix(views[3].Src, "data:image/png;base64,"))
}
