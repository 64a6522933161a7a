package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// donut is a ring chart plotter. It ignores the plot's data coordinates and
// fills the largest centered circle of the canvas.
type donut struct {
	values []float64
	colors []color.Color
	// hole is the inner radius as a fraction of the outer radius.
	hole float64
}

func (d *donut) total() float64 {
	var t float64
	for _, v := range d.values {
		t += v
	}
	return t
}

func (d *donut) Plot(c draw.Canvas, plt *plot.Plot) {
	total := d.total()
	if total <= 0 {
		return
	}

	center := vg.Point{
		X: (c.Min.X + c.Max.X) / 2,
		Y: (c.Min.Y + c.Max.Y) / 2,
	}
	outer := min(c.Max.X-c.Min.X, c.Max.Y-c.Min.Y) / 2 * 0.95
	inner := outer * vg.Length(d.hole)

	sty := plt.Legend.TextStyle
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YCenter

	// Start at twelve o'clock and go clockwise.
	start := math.Pi / 2
	for i, v := range d.values {
		if v <= 0 {
			continue
		}
		sweep := -2 * math.Pi * v / total

		var path vg.Path
		path.Move(polar(center, outer, start))
		path.Arc(center, outer, start, sweep)
		path.Arc(center, inner, start+sweep, -sweep)
		path.Close()

		c.SetColor(d.colors[i%len(d.colors)])
		c.Fill(path)

		mid := start + sweep/2
		c.FillText(sty, polar(center, (outer+inner)/2, mid), fmt.Sprintf("%.1f%%", 100*v/total))

		start += sweep
	}
}

func polar(center vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: center.X + r*vg.Length(math.Cos(angle)),
		Y: center.Y + r*vg.Length(math.Sin(angle)),
	}
}

// swatch is a solid legend entry.
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Min.X, Y: c.Max.Y},
	})
}
