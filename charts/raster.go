package charts

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"slices"
	"strconv"

	"github.com/samber/lo"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
	cool  = color.RGBA{R: 59, G: 76, B: 192, A: 255}
	warm  = color.RGBA{R: 180, G: 4, B: 38, A: 255}
)

const (
	titleHeight = 30
	cellPad     = 4
)

func newCanvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	return img
}

func drawText(dst draw.Image, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func textWidth(text string) int {
	d := &font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(text).Ceil()
}

// clip shortens text to fit in w pixels.
func clip(text string, w int) string {
	for len(text) > 0 && textWidth(text) > w {
		text = text[:len(text)-1]
	}
	return text
}

// blend interpolates between cool and warm for t in [0, 1].
func blend(t float64) color.RGBA {
	mix := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*t) }
	return color.RGBA{R: mix(cool.R, warm.R), G: mix(cool.G, warm.G), B: mix(cool.B, warm.B), A: 255}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// renderHeatmap draws one annotated cell per label, coloured by value, or the
// full grid when the aggregate carries a matrix.
func renderHeatmap(w io.Writer, agg Aggregate, width, height int) error {
	if agg.Matrix != nil {
		return renderMatrix(w, agg, width, height)
	}
	img := newCanvas(width, height)
	drawText(img, cellPad, titleHeight-10, agg.Title, black)

	labelWidth := lo.Max(lo.Map(agg.Labels, func(l string, _ int) int { return textWidth(l) })) + 2*cellPad
	labelWidth = min(labelWidth, width/3)
	rowHeight := max(1, (height-titleHeight)/len(agg.Labels))

	low, hi := lo.Min(agg.Values), lo.Max(agg.Values)
	for i, label := range agg.Labels {
		top := titleHeight + i*rowHeight
		cell := image.Rect(labelWidth, top, width-cellPad, top+rowHeight)

		t := 0.5
		if hi > low {
			t = (agg.Values[i] - low) / (hi - low)
		}
		draw.Draw(img, cell, image.NewUniform(blend(t)), image.Point{}, draw.Src)

		baseline := top + rowHeight/2 + 5
		drawText(img, cellPad, baseline, clip(label, labelWidth-cellPad), black)
		value := formatValue(agg.Values[i])
		drawText(img, cell.Min.X+(cell.Dx()-textWidth(value))/2, baseline, value, white)
	}
	return png.Encode(w, img)
}

// renderMatrix draws a rows-by-columns grid with the column names across the
// top and the row names down the left.
func renderMatrix(w io.Writer, agg Aggregate, width, height int) error {
	img := newCanvas(width, height)
	drawText(img, cellPad, titleHeight-10, agg.Title, black)

	labelWidth := min(lo.Max(lo.Map(agg.Labels, func(l string, _ int) int { return textWidth(l) }))+2*cellPad, width/3)
	header := titleHeight + 20
	cellW := max(1, (width-labelWidth-cellPad)/len(agg.Columns))
	cellH := max(1, (height-header)/len(agg.Matrix))

	cells := lo.Flatten(agg.Matrix)
	low, hi := lo.Min(cells), lo.Max(cells)
	for j, c := range agg.Columns {
		drawText(img, labelWidth+j*cellW+cellPad, header-6, clip(c, cellW-cellPad), black)
	}
	for i, row := range agg.Matrix {
		top := header + i*cellH
		baseline := top + cellH/2 + 5
		if i < len(agg.Labels) {
			drawText(img, cellPad, baseline, clip(agg.Labels[i], labelWidth-cellPad), black)
		}
		for j, v := range row {
			cell := image.Rect(labelWidth+j*cellW, top, labelWidth+(j+1)*cellW, top+cellH).Inset(1)
			t := 0.5
			if hi > low {
				t = (v - low) / (hi - low)
			}
			draw.Draw(img, cell, image.NewUniform(blend(t)), image.Point{}, draw.Src)
			value := strconv.FormatFloat(v, 'f', 2, 64)
			drawText(img, cell.Min.X+(cell.Dx()-textWidth(value))/2, baseline, value, white)
		}
	}
	return png.Encode(w, img)
}

// tile is one treemap rectangle.
type tile struct {
	label string
	value float64
	rect  image.Rectangle
}

// layoutTreemap splits rect between the values, largest first, so each
// tile's area is proportional to its value. Zero values get no tile.
func layoutTreemap(labels []string, values []float64, rect image.Rectangle) []tile {
	items := make([]tile, 0, len(labels))
	for i, l := range labels {
		if values[i] > 0 {
			items = append(items, tile{label: l, value: values[i]})
		}
	}
	slices.SortStableFunc(items, func(a, b tile) int {
		switch {
		case a.value > b.value:
			return -1
		case a.value < b.value:
			return 1
		}
		return 0
	})
	split(items, rect)
	return items
}

// split halves items by weight and cuts rect along its longer side.
func split(items []tile, rect image.Rectangle) {
	if len(items) == 0 {
		return
	}
	if len(items) == 1 {
		items[0].rect = rect
		return
	}
	total := lo.SumBy(items, func(t tile) float64 { return t.value })

	cut, acc := 1, items[0].value
	for cut < len(items)-1 && acc+items[cut].value <= total/2 {
		acc += items[cut].value
		cut++
	}
	share := acc / total

	a, b := rect, rect
	if rect.Dx() >= rect.Dy() {
		x := rect.Min.X + int(float64(rect.Dx())*share+0.5)
		a.Max.X, b.Min.X = x, x
	} else {
		y := rect.Min.Y + int(float64(rect.Dy())*share+0.5)
		a.Max.Y, b.Min.Y = y, y
	}
	split(items[:cut], a)
	split(items[cut:], b)
}

func renderTreemap(w io.Writer, agg Aggregate, width, height int) error {
	area := image.Rect(0, titleHeight, width, height)
	tiles := layoutTreemap(agg.Labels, agg.Values, area)
	if len(tiles) == 0 {
		return ErrNoData
	}

	img := newCanvas(width, height)
	drawText(img, cellPad, titleHeight-10, agg.Title, black)
	for i, t := range tiles {
		draw.Draw(img, t.rect, image.NewUniform(colorAt(i)), image.Point{}, draw.Src)
		// one pixel border between tiles
		inner := t.rect.Inset(1)
		border := image.Rect(t.rect.Min.X, t.rect.Min.Y, t.rect.Max.X, t.rect.Min.Y+1)
		draw.Draw(img, border, image.NewUniform(white), image.Point{}, draw.Src)
		border = image.Rect(t.rect.Min.X, t.rect.Min.Y, t.rect.Min.X+1, t.rect.Max.Y)
		draw.Draw(img, border, image.NewUniform(white), image.Point{}, draw.Src)

		if inner.Dy() < 16 {
			continue
		}
		text := clip(t.label+" "+formatValue(t.value), inner.Dx()-2*cellPad)
		drawText(img, inner.Min.X+cellPad, inner.Min.Y+14, text, white)
	}
	return png.Encode(w, img)
}
