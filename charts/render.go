package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/samber/lo"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

// ErrNoData is returned when an aggregate has nothing to draw.
var ErrNoData = errors.New("no data to chart")

const (
	DefaultWidth  = 960
	DefaultHeight = 540
)

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorOrange,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorCyan,
	chart.ColorYellow,
	chart.ColorAlternateGray,
}

func colorAt(i int) drawing.Color { return palette[i%len(palette)] }

// Render writes agg as a PNG. A zero width or height takes the default size.
func Render(w io.Writer, agg Aggregate, width, height int) error {
	if agg.Len() == 0 {
		return ErrNoData
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	var err error
	switch agg.Kind {
	case KindBar:
		err = renderBar(w, agg, width, height)
	case KindPie:
		err = renderPie(w, agg, width, height)
	case KindScatter:
		err = renderXY(w, agg, width, height, scatterStyle())
	case KindLine:
		err = renderXY(w, agg, width, height, lineStyle())
	case KindHeatmap:
		err = renderHeatmap(w, agg, width, height)
	case KindTreemap:
		err = renderTreemap(w, agg, width, height)
	default:
		return fmt.Errorf("unsupported chart kind %q", agg.Kind)
	}
	if err != nil {
		return fmt.Errorf("render %s chart: %w", agg.Kind, err)
	}
	return nil
}

// Scores turns analysis rows into a bar chart aggregate.
func Scores(title string, rows []models.ScoreRow) Aggregate {
	return Aggregate{
		Title:  title,
		Kind:   KindBar,
		XLabel: "Name",
		YLabel: "Score",
		Labels: lo.Map(rows, func(r models.ScoreRow, _ int) string { return r.Name }),
		Values: lo.Map(rows, func(r models.ScoreRow, _ int) float64 { return r.Score }),
	}
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

// yRange starts at zero and never collapses to an empty range.
func yRange(values []float64) *chart.ContinuousRange {
	hi := lo.Max(values)
	if hi <= 0 {
		hi = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: hi * 1.1}
}

func renderBar(w io.Writer, agg Aggregate, width, height int) error {
	bars := make([]chart.Value, len(agg.Labels))
	for i, label := range agg.Labels {
		bars[i] = chart.Value{
			Label: label,
			Value: agg.Values[i],
			Style: chart.Style{FillColor: colorAt(0), StrokeColor: colorAt(0)},
		}
	}
	barWidth := (width - 80) / (2 * len(bars))
	bc := chart.BarChart{
		Title:      agg.Title,
		Width:      width,
		Height:     height,
		BarWidth:   max(4, min(barWidth, 60)),
		Background: background(),
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis:      chart.YAxis{Name: agg.YLabel, Range: yRange(agg.Values)},
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}

func renderPie(w io.Writer, agg Aggregate, width, height int) error {
	if lo.Sum(agg.Values) <= 0 {
		return ErrNoData
	}
	total := lo.Sum(agg.Values)
	values := make([]chart.Value, len(agg.Labels))
	for i, label := range agg.Labels {
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", label, agg.Values[i]/total*100),
			Value: agg.Values[i],
			Style: chart.Style{FillColor: colorAt(i)},
		}
	}
	pc := chart.PieChart{
		Title:  agg.Title,
		Width:  width,
		Height: height,
		Values: values,
	}
	return pc.Render(chart.PNG, w)
}

func scatterStyle() chart.Style {
	return chart.Style{StrokeWidth: chart.Disabled, DotWidth: 5, DotColor: colorAt(0)}
}

func lineStyle() chart.Style {
	return chart.Style{StrokeWidth: 2, StrokeColor: colorAt(0), DotWidth: 5, DotColor: colorAt(0)}
}

// renderXY draws a scatter from X/Y, or a line over the category labels.
func renderXY(w io.Writer, agg Aggregate, width, height int, style chart.Style) error {
	xs, ys := agg.X, agg.Y
	xAxis := chart.XAxis{Name: agg.XLabel}
	if agg.Kind != KindScatter {
		xs = lo.Map(agg.Labels, func(_ string, i int) float64 { return float64(i) })
		ys = agg.Values
		xAxis.Ticks = lo.Map(agg.Labels, func(l string, i int) chart.Tick { return chart.Tick{Value: float64(i), Label: l} })
	}
	xAxis.Range = padded(xs)

	yr := padded(ys)
	if agg.Kind != KindScatter {
		yr = yRange(ys)
	}
	c := chart.Chart{
		Title:      agg.Title,
		Width:      width,
		Height:     height,
		Background: background(),
		XAxis:      xAxis,
		YAxis:      chart.YAxis{Name: agg.YLabel, Range: yr},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: agg.Title, XValues: xs, YValues: ys, Style: style},
		},
	}
	return c.Render(chart.PNG, w)
}

// padded widens [min, max] by 5% each side, or by one unit when flat.
func padded(values []float64) *chart.ContinuousRange {
	low, hi := lo.Min(values), lo.Max(values)
	pad := (hi - low) * 0.05
	if pad == 0 {
		pad = math.Max(1, math.Abs(hi)*0.05)
	}
	return &chart.ContinuousRange{Min: low - pad, Max: hi + pad}
}
