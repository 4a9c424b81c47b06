// Package nuplot renders publication-style figures from recordings and
// analysis results: trace overlays, raster plots, box plots and scatter
// columns.
package nuplot

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"neurphys/internal/analysis"
	"neurphys/pkg/contracts/domain"
)

// Default figure size, matching a 4x4 inch panel.
const (
	DefaultWidth  = 4 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

var (
	greyDotted = draw.LineStyle{
		Color:  color.Gray{Y: 128},
		Width:  vg.Points(1),
		Dashes: []vg.Length{vg.Points(2), vg.Points(2)},
	}
	scaleBarStyle = draw.LineStyle{
		Color: color.Black,
		Width: vg.Points(2),
	}
)

// Column is one labelled group of values for a box or scatter-column plot.
type Column struct {
	Label  string
	Values []float64
}

// Bounds is the data extent of a plot, used to anchor scale bars.
type Bounds struct {
	XMin, XMax, YMin, YMax float64
}

// Traces plots the named channel of every sweep as an overlaid line plot.
func Traces(rec *domain.Recording, channel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = rec.Source
	p.X.Label.Text = "time (s)"

	for i, sweep := range rec.Sweeps {
		series := sweep.Channel(channel)
		if series == nil {
			return nil, fmt.Errorf("%s has no channel %q", domain.SweepName(i+1), channel)
		}
		if p.Y.Label.Text == "" && series.Units != "" {
			p.Y.Label.Text = fmt.Sprintf("%s (%s)", channel, series.Units)
		}

		xys := make(plotter.XYs, len(series.Samples))
		for j := range xys {
			xys[j].X = sweep.Time[j]
			xys[j].Y = series.Samples[j]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", domain.SweepName(i+1), err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
	}
	return p, nil
}

// FitOverlay plots the raw decay of an event with its fitted curve on top.
func FitOverlay(fit *analysis.DecayFit) (*plot.Plot, error) {
	x, y, fitted := fit.X, fit.Y, fit.Fitted

	p := plot.New()
	p.X.Label.Text = "time from peak (s)"

	raw := make(plotter.XYs, len(x))
	model := make(plotter.XYs, len(x))
	for i := range x {
		raw[i].X, raw[i].Y = x[i], y[i]
		model[i].X, model[i].Y = x[i], fitted[i]
	}

	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return nil, err
	}
	rawLine.Color = color.Gray{Y: 160}

	fitLine, err := plotter.NewLine(model)
	if err != nil {
		return nil, err
	}
	fitLine.Color = color.Black
	fitLine.Width = vg.Points(2)

	p.Add(rawLine, fitLine)
	p.Legend.Add("data", rawLine)
	p.Legend.Add("fit", fitLine)
	return p, nil
}

// Raster plots per-sweep event times as tick marks, one row per sweep,
// reading top-down. vlines marks protocol times with dotted grey lines.
func Raster(events [][]float64, vlines map[string]float64) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "sweep"

	rows := len(events)
	for i, sweep := range events {
		// Row 0 draws at the top.
		base := float64(rows - i)
		for _, t := range sweep {
			tick, err := plotter.NewLine(plotter.XYs{
				{X: t, Y: base - 0.4},
				{X: t, Y: base + 0.4},
			})
			if err != nil {
				return nil, err
			}
			tick.Color = color.Black
			p.Add(tick)
		}
	}

	for _, x := range vlines {
		line, err := plotter.NewLine(plotter.XYs{
			{X: x, Y: 0.5},
			{X: x, Y: float64(rows) + 0.5},
		})
		if err != nil {
			return nil, err
		}
		line.LineStyle = greyDotted
		p.Add(line)
	}

	p.Y.Min, p.Y.Max = 0.5, float64(rows)+0.5
	return p, nil
}

// Box draws one box plot per column with 10-90 percentile whiskers.
func Box(cols []Column) (*plot.Plot, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns to plot")
	}

	p := plot.New()
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Label
		b, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(col.Values))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Label, err)
		}
		b.FillColor = color.White
		b.MedianStyle.Width = vg.Points(2)
		p.Add(b)
	}
	p.NominalX(names...)
	return p, nil
}

// ScatterColumns draws one jittered scatter column per group. jitter is the
// standard deviation of the horizontal spread in column widths; the seed
// fixes it so the same data always renders the same figure.
func ScatterColumns(cols []Column, jitter float64, seed int64) (*plot.Plot, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns to plot")
	}

	rng := rand.New(rand.NewSource(seed))
	p := plot.New()

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Label
		xys := make(plotter.XYs, len(col.Values))
		for j, v := range col.Values {
			x := float64(i + 1)
			if jitter > 0 {
				x += rng.NormFloat64() * jitter
			}
			xys[j].X, xys[j].Y = x, v
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Label, err)
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  plotutil.Color(i),
			Radius: vg.Points(3),
			Shape:  draw.CircleGlyph{},
		}
		p.Add(sc)
		p.Legend.Add(col.Label, sc)
	}

	p.X.Min, p.X.Max = 0.5, float64(len(cols))+0.5
	p.X.Tick.Marker = columnTicks(names)
	return p, nil
}

// columnTicks labels integer positions 1..n with the column names.
type columnTicks []string

func (c columnTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, name := range c {
		v := float64(i + 1)
		if v >= min && v <= max {
			ticks = append(ticks, plot.Tick{Value: v, Label: name})
		}
	}
	return ticks
}

// Clean strips both axes from a figure and marks reference levels with
// labelled dotted lines, for figures that carry scale bars instead of axes.
func Clean(p *plot.Plot, yUnits string, hlines map[string]float64, b Bounds) error {
	p.HideAxes()
	for name, y := range hlines {
		line, err := plotter.NewLine(plotter.XYs{
			{X: b.XMin, Y: y},
			{X: b.XMax, Y: y},
		})
		if err != nil {
			return err
		}
		line.LineStyle = greyDotted
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s: %v %s", name, y, yUnits), line)
	}
	return nil
}

// ScaleBars draws x and y scale bars in the bottom-right corner of the data
// region with labelled legend entries.
func ScaleBars(p *plot.Plot, xScale float64, xUnits string, yScale float64, yUnits string, b Bounds) error {
	if xScale <= 0 || yScale <= 0 {
		return fmt.Errorf("scale bar lengths must be positive, got x=%v y=%v", xScale, yScale)
	}

	hbar, err := plotter.NewLine(plotter.XYs{
		{X: b.XMax - xScale, Y: b.YMin},
		{X: b.XMax, Y: b.YMin},
	})
	if err != nil {
		return err
	}
	hbar.LineStyle = scaleBarStyle

	vbar, err := plotter.NewLine(plotter.XYs{
		{X: b.XMax, Y: b.YMin},
		{X: b.XMax, Y: b.YMin + yScale},
	})
	if err != nil {
		return err
	}
	vbar.LineStyle = scaleBarStyle

	p.Add(hbar, vbar)
	p.Legend.Add(fmt.Sprintf("x: %v %s", xScale, xUnits), hbar)
	p.Legend.Add(fmt.Sprintf("y: %v %s", yScale, yUnits), vbar)
	return nil
}

// DataBounds returns the extent of the named channel across every sweep.
func DataBounds(rec *domain.Recording, channel string) (Bounds, error) {
	b := Bounds{
		XMin: math.Inf(1), XMax: math.Inf(-1),
		YMin: math.Inf(1), YMax: math.Inf(-1),
	}
	for i, sweep := range rec.Sweeps {
		series := sweep.Channel(channel)
		if series == nil {
			return Bounds{}, fmt.Errorf("%s has no channel %q", domain.SweepName(i+1), channel)
		}
		for j, t := range sweep.Time {
			b.XMin = math.Min(b.XMin, t)
			b.XMax = math.Max(b.XMax, t)
			b.YMin = math.Min(b.YMin, series.Samples[j])
			b.YMax = math.Max(b.YMax, series.Samples[j])
		}
	}
	if math.IsInf(b.XMin, 1) {
		return Bounds{}, fmt.Errorf("recording %s has no samples", rec.Source)
	}
	return b, nil
}

// Save writes the figure to path at the default size. The image format
// follows the file extension (.png, .svg, .pdf).
func Save(p *plot.Plot, path string) error {
	return p.Save(DefaultWidth, DefaultHeight, path)
}
