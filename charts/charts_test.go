package charts

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/dataset"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

func table(t *testing.T, csv string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.Read(strings.NewReader(csv))
	require.NoError(t, err)
	tbl.Normalize()
	return tbl
}

const busCSV = `Route Number,Frequency,Duration,Key Landmarks
39A,10,70,"Spire, Phoenix Park, Blanchardstown"
145,12,80,"Heuston, Bray"
46A,8,55,Donnybrook
145,12,80,UCD
`

const dartCSV = `StationName,Weekend Working,ATM,Wi-Fi & Internet Access,Refreshments,Phone Charging,Ticket Vending Machine,Smart Card Enabled,Routes Serviced
Bray,Yes,Yes,No,Yes,No,Yes,Yes,"Bray-Howth, Bray-Malahide, Greystones"
Howth,No,No,Yes,No,No,Yes,Yes,Bray-Howth
Connolly,Yes,Yes,Yes,Yes,Yes,Yes,Yes,"Bray-Howth, Bray-Malahide"
`

const luasCSV = `Station Name,Line,Zone,Daily Footfall,Parking Availability,Accessibility,Nearby Landmarks
Ranelagh,Green,2,"12,500",No,Yes,"Ranelagh Gardens, Triangle"
Sandyford,Green,4,9800,Yes,Yes,Beacon
Abbey Street,Red,1,"3,000",No,No,"Spire, GPO, Abbey Theatre"
Red Cow,Red,3,,Yes,Yes,
`

func build(t *testing.T, mode, view, csv string) Aggregate {
	t.Helper()
	v, err := Lookup(mode, view)
	require.NoError(t, err)
	agg, err := v.Build(table(t, csv))
	require.NoError(t, err)
	return agg
}

func TestViewsPerMode(t *testing.T) {
	assert.Len(t, Views("BUS"), 5)
	assert.Len(t, Views("DART"), 7)
	assert.Len(t, Views("luas"), 9)
	assert.Empty(t, Views("TRAM"))

	_, err := Lookup("BUS", "facilities-treemap")
	assert.ErrorIs(t, err, ErrUnknownView)

	v, err := Lookup("LUAS", "stations-per-zone")
	require.NoError(t, err)
	assert.True(t, v.Table)
	assert.Equal(t, "LUAS", v.Mode)
}

func TestFrequencyVsDuration(t *testing.T) {
	agg := build(t, "BUS", "frequency-vs-duration", busCSV)
	assert.Equal(t, KindScatter, agg.Kind)
	assert.Equal(t, []float64{10, 12, 8, 12}, agg.X)
	assert.Equal(t, []float64{70, 80, 55, 80}, agg.Y)
}

func TestTopRoutesByLandmarks(t *testing.T) {
	agg := build(t, "BUS", "top-routes-by-landmarks", busCSV)
	// Equal counts keep file order.
	assert.Equal(t, []string{"39a", "145", "46a", "145"}, agg.Labels)
	assert.Equal(t, []float64{3, 2, 1, 1}, agg.Values)
}

func TestLandmarksHeatmapSumsPerRoute(t *testing.T) {
	agg := build(t, "BUS", "landmarks-heatmap", busCSV)
	assert.Equal(t, KindHeatmap, agg.Kind)
	assert.Equal(t, []string{"145", "39a", "46a"}, agg.Labels)
	assert.Equal(t, []float64{3, 3, 1}, agg.Values)
}

func TestDARTViews(t *testing.T) {
	facilities := build(t, "DART", "facilities-availability", dartCSV)
	assert.Equal(t, dataset.FacilityColumns, facilities.Labels)
	assert.Equal(t, []float64{2, 2, 2, 1, 3, 3}, facilities.Values)

	weekend := build(t, "DART", "weekend-operational", dartCSV)
	assert.Equal(t, KindPie, weekend.Kind)
	assert.Equal(t, []string{"yes", "no"}, weekend.Labels)
	assert.Equal(t, []float64{2, 1}, weekend.Values)

	routes := build(t, "DART", "routes-serviced", dartCSV)
	assert.Equal(t, []string{"bray", "connolly", "howth"}, routes.Labels)
	assert.Equal(t, []float64{3, 2, 1}, routes.Values)

	common := build(t, "DART", "common-stations-in-routes", dartCSV)
	assert.Equal(t, []string{"bray-howth", "bray-malahide", "greystones"}, common.Labels)
	assert.Equal(t, []float64{3, 2, 1}, common.Values)
}

func TestCorrelationViews(t *testing.T) {
	bus := build(t, "BUS", "correlation", busCSV)
	assert.Equal(t, KindHeatmap, bus.Kind)
	assert.Equal(t, []string{"Frequency", "Duration"}, bus.Columns)
	assert.Equal(t, bus.Columns, bus.Labels)
	require.Len(t, bus.Matrix, 2)
	assert.InDelta(t, 1, bus.Matrix[0][0], 1e-9)
	assert.Greater(t, bus.Matrix[0][1], 0.99)

	luas := build(t, "LUAS", "correlation", luasCSV)
	assert.Equal(t, []string{"Zone"}, luas.Columns)

	v, err := Lookup("DART", "correlation")
	require.NoError(t, err)
	_, err = v.Build(table(t, dartCSV))
	assert.ErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "no numeric columns found in DART dataset")

	_, err = v.Build(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCorrelationDrawsUndefinedAsZero(t *testing.T) {
	agg := build(t, "BUS", "correlation", "Frequency,Duration\n10,70\n12,70\n")
	assert.Equal(t, 0.0, agg.Matrix[0][1])
	assert.Equal(t, 0.0, agg.Matrix[1][1])

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, agg, 300, 200))
}

func TestMissingValuesView(t *testing.T) {
	v, err := Lookup("LUAS", "missing-values")
	require.NoError(t, err)
	assert.True(t, v.Table)

	agg := build(t, "LUAS", "missing-values", luasCSV)
	assert.Equal(t, []string{"Station Name", "Line", "Zone", "Daily Footfall", "Parking Availability", "Accessibility", "Nearby Landmarks"}, agg.Labels)
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 0, 1}, agg.Values)

	filled := table(t, dartCSV)
	filled.Missing = map[string]int{"ATM": 4}
	agg, err = mustLookup(t, "DART", "missing-values").Build(filled)
	require.NoError(t, err)
	assert.Equal(t, "ATM", agg.Labels[2])
	assert.Equal(t, 4.0, agg.Values[2], "counts recorded at load win")

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, build(t, "BUS", "missing-values", busCSV), 400, 300))
}

func mustLookup(t *testing.T, mode, name string) View {
	t.Helper()
	v, err := Lookup(mode, name)
	require.NoError(t, err)
	return v
}

func TestLUASViews(t *testing.T) {
	footfall := build(t, "LUAS", "footfall-by-line", luasCSV)
	assert.Equal(t, []string{"green", "red"}, footfall.Labels)
	assert.Equal(t, []float64{22300, 3000}, footfall.Values)

	trend := build(t, "LUAS", "footfall-trends", luasCSV)
	assert.Equal(t, KindLine, trend.Kind)
	assert.Equal(t, footfall.Values, trend.Values)

	parking := build(t, "LUAS", "parking-availability", luasCSV)
	assert.Equal(t, []string{"no", "yes"}, parking.Labels)

	landmarks := build(t, "LUAS", "nearby-landmarks", luasCSV)
	assert.Equal(t, []float64{2, 1, 3, 1}, landmarks.Values)

	zones := build(t, "LUAS", "stations-per-zone", luasCSV)
	assert.Equal(t, []string{"1", "2", "3", "4"}, zones.Labels)
	assert.Equal(t, []float64{1, 1, 1, 1}, zones.Values)

	byZone := build(t, "LUAS", "accessibility-by-zone", luasCSV)
	assert.Contains(t, byZone.Labels, "1 / no")
	assert.Len(t, byZone.Labels, 4)
}

func TestMissingColumnMessage(t *testing.T) {
	v, err := Lookup("BUS", "frequency-vs-duration")
	require.NoError(t, err)

	_, err = v.Build(table(t, "Route Number\n39A\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Equal(t, "Columns 'Frequency' or 'Duration' not found in BUS dataset.", err.Error())

	v, err = Lookup("DART", "weekend-operational")
	require.NoError(t, err)
	_, err = v.Build(table(t, "StationName\nBray\n"))
	assert.EqualError(t, err, "Column 'Weekend Working' not found in DART dataset.")

	_, err = v.Build(nil)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func decode(t *testing.T, buf *bytes.Buffer) image.Image {
	t.Helper()
	img, err := png.Decode(buf)
	require.NoError(t, err)
	return img
}

func TestRenderEveryKind(t *testing.T) {
	for _, tc := range []struct {
		mode, view, csv string
	}{
		{"BUS", "frequency-vs-duration", busCSV},
		{"BUS", "top-routes-by-landmarks", busCSV},
		{"BUS", "landmarks-heatmap", busCSV},
		{"DART", "weekend-operational", dartCSV},
		{"DART", "facilities-treemap", dartCSV},
		{"BUS", "correlation", busCSV},
		{"LUAS", "footfall-trends", luasCSV},
	} {
		t.Run(tc.view, func(t *testing.T) {
			agg := build(t, tc.mode, tc.view, tc.csv)
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, agg, 400, 300))
			img := decode(t, &buf)
			assert.Equal(t, 400, img.Bounds().Dx())
			assert.Equal(t, 300, img.Bounds().Dy())
		})
	}
}

func TestRenderScores(t *testing.T) {
	agg := Scores("Degree Centrality", []models.ScoreRow{{Name: "Heuston", Score: 4}, {Name: "Bray", Score: 0}})
	assert.Equal(t, []string{"Heuston", "Bray"}, agg.Labels)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, agg, 0, 0))
	img := decode(t, &buf)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
}

func TestRenderNoData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, Aggregate{Kind: KindBar}, 0, 0), ErrNoData)
	assert.ErrorIs(t, Render(&buf, Aggregate{Kind: KindPie, Labels: []string{"a"}, Values: []float64{0}}, 0, 0), ErrNoData)
}

func TestTreemapAreasFollowValues(t *testing.T) {
	rect := image.Rect(0, 0, 100, 100)
	tiles := layoutTreemap([]string{"a", "b", "c", "zero"}, []float64{50, 25, 25, 0}, rect)
	require.Len(t, tiles, 3)

	area := func(r image.Rectangle) int { return r.Dx() * r.Dy() }
	assert.Equal(t, "a", tiles[0].label)
	assert.Equal(t, 5000, area(tiles[0].rect))
	assert.Equal(t, 2500, area(tiles[1].rect))
	assert.Equal(t, 2500, area(tiles[2].rect))

	total := 0
	for _, tl := range tiles {
		total += area(tl.rect)
		assert.True(t, tl.rect.In(rect))
	}
	assert.Equal(t, area(rect), total)
}
