// Package charts draws the dashboard figures as PNG images with gonum/plot.
package charts

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"sales-dashboard/internal/models"
)

const (
	NameTrend       = "trend"
	NameDeviation   = "deviation"
	NameHoliday     = "holiday"
	NameCorrelation = "correlation"
	NameProducts    = "products"
)

// Names lists the charts in page order.
var Names = []string{NameTrend, NameDeviation, NameHoliday, NameCorrelation, NameProducts}

var (
	colorPositive = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	colorNegative = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorSales    = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	colorTrend    = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	colorRolling  = color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}
	colorHoliday  = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	colorWorkday  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
)

// DonutHole is the inner radius of the holiday chart relative to the outer one.
const DonutHole = 0.4

type Chart struct {
	Name  string
	Title string
	PNG   []byte
}

// DataURI embeds the image for an <img src>.
func (c Chart) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG)
}

type Charts struct {
	Trend       Chart
	Deviation   Chart
	Holiday     Chart
	Correlation Chart
	Products    Chart
}

// All returns the charts in page order.
func (c *Charts) All() []Chart {
	return []Chart{c.Trend, c.Deviation, c.Holiday, c.Correlation, c.Products}
}

type Renderer struct {
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{
		width:  8 * vg.Inch,
		height: 4.5 * vg.Inch,
		logger: logger,
	}
}

// RenderAll draws every chart concurrently. The first failure cancels the
// rest.
func (r *Renderer) RenderAll(ctx context.Context, report *models.Report) (*Charts, error) {
	start := time.Now()
	out := &Charts{}

	g, ctx := errgroup.WithContext(ctx)
	targets := []*Chart{&out.Trend, &out.Deviation, &out.Holiday, &out.Correlation, &out.Products}
	for i, name := range Names {
		dst := targets[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ch, err := r.Render(name, report)
			if err != nil {
				return err
			}
			*dst = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug("charts rendered", "profile", report.Profile, "duration", time.Since(start))
	return out, nil
}

// Render draws a single chart by name.
func (r *Renderer) Render(name string, report *models.Report) (Chart, error) {
	var (
		p     *plot.Plot
		title string
		err   error
	)

	switch name {
	case NameTrend:
		title = "Weekly sales trend"
		p, err = trendPlot(report)
	case NameDeviation:
		title = "Daily deviation from the mean"
		p, err = deviationPlot(report)
	case NameHoliday:
		title = "Holiday vs non-holiday sales"
		p = holidayPlot(report)
	case NameCorrelation:
		title = "Product correlation"
		p, err = correlationPlot(report)
	case NameProducts:
		title = "Sales by product"
		p, err = productsPlot(report)
	default:
		return Chart{}, fmt.Errorf("unknown chart %q", name)
	}
	if err != nil {
		return Chart{}, fmt.Errorf("%s chart: %w", name, err)
	}

	p.Title.Text = title
	png, err := r.encode(p)
	if err != nil {
		return Chart{}, fmt.Errorf("%s chart: %w", name, err)
	}
	return Chart{Name: name, Title: title, PNG: png}, nil
}

func (r *Renderer) encode(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(r.width, r.height, "png")
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}

func trendPlot(report *models.Report) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Week"
	p.Y.Label.Text = "Sales"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	if len(report.Weekly) == 0 {
		return p, nil
	}

	sales := make(plotter.XYs, len(report.Weekly))
	for i, w := range report.Weekly {
		sales[i] = plotter.XY{X: unix(w.WeekStart), Y: w.Total}
	}
	salesLine, points, err := plotter.NewLinePoints(sales)
	if err != nil {
		return nil, err
	}
	salesLine.LineStyle.Color = colorSales
	salesLine.LineStyle.Width = vg.Points(2)
	points.GlyphStyle.Color = colorSales
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(salesLine, points)
	p.Legend.Add("Weekly sales", salesLine, points)

	if len(report.Trend.Fitted) == len(report.Weekly) {
		fitted := make(plotter.XYs, len(report.Weekly))
		for i, w := range report.Weekly {
			fitted[i] = plotter.XY{X: unix(w.WeekStart), Y: report.Trend.Fitted[i]}
		}
		trendLine, err := plotter.NewLine(fitted)
		if err != nil {
			return nil, err
		}
		trendLine.LineStyle.Color = colorTrend
		trendLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(trendLine)
		p.Legend.Add(fmt.Sprintf("Trend (%+.1f/week)", report.Trend.Slope), trendLine)
	}

	if len(report.Rolling) > 0 {
		rolling := make(plotter.XYs, len(report.Rolling))
		for i, pt := range report.Rolling {
			rolling[i] = plotter.XY{X: unix(pt.WeekStart), Y: pt.Average}
		}
		rollingLine, err := plotter.NewLine(rolling)
		if err != nil {
			return nil, err
		}
		rollingLine.LineStyle.Color = colorRolling
		rollingLine.LineStyle.Width = vg.Points(1.5)
		p.Add(rollingLine)
		p.Legend.Add("Rolling average", rollingLine)
	}

	return p, nil
}

// dayTicks labels roughly eight evenly spaced days of an index axis.
type dayTicks struct {
	days []time.Time
}

func (t dayTicks) Ticks(lo, hi float64) []plot.Tick {
	if len(t.days) == 0 {
		return nil
	}
	step := max(1, len(t.days)/8)
	var ticks []plot.Tick
	for i := 0; i < len(t.days); i++ {
		x := float64(i)
		if x < lo || x > hi {
			continue
		}
		label := ""
		if i%step == 0 {
			label = t.days[i].Format("01-02")
		}
		ticks = append(ticks, plot.Tick{Value: x, Label: label})
	}
	return ticks
}

func deviationPlot(report *models.Report) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Day"
	p.Y.Label.Text = "Deviation"
	p.Add(plotter.NewGrid())

	n := len(report.Daily)
	if n == 0 {
		return p, nil
	}

	pos := make(plotter.Values, n)
	neg := make(plotter.Values, n)
	days := make([]time.Time, n)
	for i, d := range report.Daily {
		days[i] = d.Date
		if d.Deviation >= 0 {
			pos[i] = d.Deviation
		} else {
			neg[i] = d.Deviation
		}
	}

	width := vg.Points(math.Max(1, 420/float64(n)))
	for _, s := range []struct {
		values plotter.Values
		color  color.Color
		label  string
	}{
		{pos, colorPositive, "Above mean"},
		{neg, colorNegative, "Below mean"},
	} {
		bars, err := plotter.NewBarChart(s.values, width)
		if err != nil {
			return nil, err
		}
		bars.Color = s.color
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.Legend.Add(s.label, bars)
	}

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.LineStyle.Color = color.Gray{Y: 0x60}
	p.Add(zero)

	p.X.Tick.Marker = dayTicks{days: days}
	p.X.Min, p.X.Max = -1, float64(n)
	p.Legend.Top = true

	return p, nil
}

// productsPlot draws one bar per product column, labelled by product name.
func productsPlot(report *models.Report) (*plot.Plot, error) {
	p := plot.New()
	if len(report.Products) == 0 {
		p.HideAxes()
		return p, nil
	}
	p.Y.Label.Text = "Sales"
	p.Add(plotter.NewGrid())

	values := make(plotter.Values, len(report.Products))
	names := make([]string, len(report.Products))
	for i, pt := range report.Products {
		values[i] = pt.Total
		names[i] = pt.Product
	}

	bars, err := plotter.NewBarChart(values, vg.Points(math.Max(8, 300/float64(len(values)))))
	if err != nil {
		return nil, err
	}
	bars.Color = colorSales
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)

	return p, nil
}

func holidayPlot(report *models.Report) *plot.Plot {
	p := plot.New()
	p.HideAxes()

	holiday := report.Holidays.Holiday.InexactFloat64()
	nonHoliday := report.Holidays.NonHoliday.InexactFloat64()

	p.Add(&donut{
		values: []float64{holiday, nonHoliday},
		colors: []color.Color{colorHoliday, colorWorkday},
		hole:   DonutHole,
	})
	p.Legend.Add(fmt.Sprintf("Holiday (%s)", report.Holidays.Holiday.StringFixed(2)), swatch{colorHoliday})
	p.Legend.Add(fmt.Sprintf("Non-holiday (%s)", report.Holidays.NonHoliday.StringFixed(2)), swatch{colorWorkday})
	p.Legend.Left = true
	p.Legend.Top = true

	return p
}

// matrixGrid presents a correlation matrix as a heat map grid with the first
// label on the top row.
type matrixGrid struct {
	m models.CorrelationMatrix
}

func (g matrixGrid) Dims() (c, r int)   { return g.m.Size(), g.m.Size() }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }
func (g matrixGrid) Z(c, r int) float64 { return g.m.Values[g.m.Size()-1-r][c] }

func correlationPlot(report *models.Report) (*plot.Plot, error) {
	p := plot.New()
	m := report.Correlation
	n := m.Size()
	if n < 2 {
		p.HideAxes()
		return p, nil
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := matrixGrid{m: m}
	heat := plotter.NewHeatMap(grid, cmap.Palette(255))
	heat.Min, heat.Max = -1, 1
	p.Add(heat)

	var cells plotter.XYLabels
	for r := range n {
		for c := range n {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%.2f", grid.Z(c, r)))
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)

	rows := make([]string, n)
	for i, l := range m.Labels {
		rows[n-1-i] = l
	}
	p.NominalX(m.Labels...)
	p.NominalY(rows...)

	return p, nil
}
