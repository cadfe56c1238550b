package charts

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/dataset"
)

// ErrUnknownView is returned for a view name the mode does not offer.
var ErrUnknownView = errors.New("unknown view")

const topN = 10

// View is one named chart of a mode's dataset.
type View struct {
	Name  string
	Mode  string
	Title string
	Kind  Kind
	// Table marks views whose aggregate is also shown as a table.
	Table bool

	build func(t *dataset.Table) (Aggregate, error)
}

// Build derives the view's aggregate from the mode's table.
func (v View) Build(t *dataset.Table) (Aggregate, error) {
	agg, err := v.build(t)
	if err != nil {
		return Aggregate{}, err
	}
	agg.Title = v.Title
	agg.Kind = v.Kind
	return agg, nil
}

var registry = map[string][]View{
	"BUS": {
		{Name: "frequency-vs-duration", Title: "Frequency vs. Duration", Kind: KindScatter, build: frequencyVsDuration},
		{Name: "top-routes-by-landmarks", Title: "Top 10 Routes by Key Landmarks", Kind: KindBar, build: topRoutesByLandmarks},
		{Name: "landmarks-heatmap", Title: "Heatmap of Key Landmarks by Routes", Kind: KindHeatmap, build: landmarksByRoute},
	},
	"DART": {
		{Name: "facilities-availability", Title: "Facilities Availability in DART Stations", Kind: KindBar, build: facilitiesAvailability},
		{Name: "weekend-operational", Title: "Weekend Working Stations", Kind: KindPie, build: weekendOperational},
		{Name: "routes-serviced", Title: "Top 10 Stations by Routes Serviced", Kind: KindBar, build: routesServiced},
		{Name: "common-stations-in-routes", Title: "Top 10 Most Common Stations in Routes Serviced", Kind: KindBar, build: commonStationsInRoutes},
		{Name: "facilities-treemap", Title: "Facility Distribution", Kind: KindTreemap, build: facilitiesAvailability},
	},
	"LUAS": {
		{Name: "footfall-by-line", Title: "Footfall by Line", Kind: KindBar, build: footfallByLine},
		{Name: "footfall-trends", Title: "Daily Footfall Trends by Line", Kind: KindLine, build: footfallByLine},
		{Name: "parking-availability", Title: "Parking Availability at LUAS Stations", Kind: KindBar, build: countsOf("Parking Availability", "Parking Availability")},
		{Name: "accessibility", Title: "Accessibility Comparison", Kind: KindBar, build: countsOf("Accessibility", "Accessibility")},
		{Name: "nearby-landmarks", Title: "Number of Nearby Landmarks per Station", Kind: KindBar, build: nearbyLandmarks},
		{Name: "stations-per-zone", Title: "Number of Stations per Zone", Kind: KindBar, Table: true, build: stationsPerZone},
		{Name: "accessibility-by-zone", Title: "Accessibility Distribution by Zone", Kind: KindTreemap, build: accessibilityByZone},
	},
}

func init() {
	for mode, views := range registry {
		views = append(views,
			View{Name: "correlation", Title: "Correlation Heatmap", Kind: KindHeatmap, build: correlationOf(mode)},
			View{Name: "missing-values", Title: "Missing Values per Column", Kind: KindBar, Table: true, build: missingValuesOf(mode)},
		)
		for i := range views {
			views[i].Mode = mode
		}
		registry[mode] = views
	}
}

// Views lists the views of a mode in display order.
func Views(mode string) []View {
	return registry[strings.ToUpper(mode)]
}

// Lookup finds a view by name.
func Lookup(mode, name string) (View, error) {
	v, ok := lo.Find(Views(mode), func(v View) bool { return v.Name == name })
	if !ok {
		return View{}, fmt.Errorf("%w: %s/%s", ErrUnknownView, mode, name)
	}
	return v, nil
}

func frequencyVsDuration(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "BUS", "Frequency", "Duration"); err != nil {
		return Aggregate{}, err
	}
	agg := Aggregate{XLabel: "Frequency", YLabel: "Duration (mins)"}
	for _, row := range t.Rows {
		x, okx := dataset.ParseNumber(t.Value(row, "Frequency"))
		y, oky := dataset.ParseNumber(t.Value(row, "Duration"))
		if okx && oky {
			agg.X = append(agg.X, x)
			agg.Y = append(agg.Y, y)
		}
	}
	return agg, nil
}

// splitCounts pairs each row's label with the item count of a list column.
func splitCounts(t *dataset.Table, labelCol, listCol string) []count {
	return lo.Map(t.Rows, func(row []string, _ int) count {
		return count{label: t.Value(row, labelCol), value: float64(dataset.SplitCount(t.Value(row, listCol)))}
	})
}

func topByCount(c []count) []count {
	sortCounts(c)
	if len(c) > topN {
		c = c[:topN]
	}
	return c
}

// topByItemCount adds countCol holding the item count of listCol, sorts the
// rows on it, highest first, and keeps the top rows labelled by labelCol.
func topByItemCount(t *dataset.Table, labelCol, listCol, countCol string) (Aggregate, error) {
	counted := t.WithColumn(countCol, func(row []string) string {
		return itoa(dataset.SplitCount(t.Value(row, listCol)))
	})
	sorted, err := counted.Sort(countCol, true)
	if err != nil {
		return Aggregate{}, err
	}
	var agg Aggregate
	for _, row := range sorted.Head(topN) {
		n, _ := dataset.ParseNumber(sorted.Value(row, countCol))
		agg.Labels = append(agg.Labels, sorted.Value(row, labelCol))
		agg.Values = append(agg.Values, n)
	}
	return agg, nil
}

func topRoutesByLandmarks(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "BUS", "Route Number", "Key Landmarks"); err != nil {
		return Aggregate{}, err
	}
	agg, err := topByItemCount(t, "Route Number", "Key Landmarks", "Landmarks Count")
	agg.XLabel, agg.YLabel = "Route Number", "Number of Key Landmarks"
	return agg, err
}

func landmarksByRoute(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "BUS", "Route Number", "Key Landmarks"); err != nil {
		return Aggregate{}, err
	}
	c := splitCounts(t, "Route Number", "Key Landmarks")
	agg := Aggregate{XLabel: "Landmarks Count", YLabel: "Route Number"}
	agg.setCounts(sumBy(
		lo.Map(c, func(x count, _ int) string { return x.label }),
		lo.Map(c, func(x count, _ int) float64 { return x.value }),
	))
	return agg, nil
}

func facilitiesAvailability(t *dataset.Table) (Aggregate, error) {
	present := lo.Filter(dataset.FacilityColumns, func(c string, _ int) bool { return t != nil && t.Has(c) })
	if len(present) == 0 {
		return Aggregate{}, &MissingColumnError{Mode: "DART", Columns: dataset.FacilityColumns}
	}
	agg := Aggregate{XLabel: "Facilities", YLabel: "Number of Stations"}
	for _, c := range present {
		values, _ := t.Column(c)
		yes := lo.CountBy(values, func(v string) bool { return strings.EqualFold(strings.TrimSpace(v), "yes") })
		agg.Labels = append(agg.Labels, c)
		agg.Values = append(agg.Values, float64(yes))
	}
	return agg, nil
}

func weekendOperational(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "DART", "Weekend Working"); err != nil {
		return Aggregate{}, err
	}
	values, _ := t.Column("Weekend Working")
	var agg Aggregate
	agg.setCounts(valueCounts(values))
	return agg, nil
}

func routesServiced(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "DART", "StationName", "Routes Serviced"); err != nil {
		return Aggregate{}, err
	}
	agg, err := topByItemCount(t, "StationName", "Routes Serviced", "Routes Count")
	agg.XLabel, agg.YLabel = "Station Name", "Number of Routes"
	return agg, err
}

// commonStationsInRoutes counts how often each item of the Routes Serviced
// lists appears across all stations.
func commonStationsInRoutes(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "DART", "Routes Serviced"); err != nil {
		return Aggregate{}, err
	}
	values, _ := t.Column("Routes Serviced")
	agg := Aggregate{XLabel: "Station Name", YLabel: "Frequency in Routes"}
	agg.setCounts(topByCount(valueCounts(lo.FlatMap(values, func(v string, _ int) []string { return dataset.SplitItems(v) }))))
	return agg, nil
}

func footfallByLine(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "LUAS", "Line", "Daily Footfall"); err != nil {
		return Aggregate{}, err
	}
	footfall, rows, err := t.Floats("Daily Footfall")
	if err != nil {
		return Aggregate{}, err
	}
	lines := lo.Map(rows, func(i int, _ int) string { return t.Value(t.Rows[i], "Line") })
	agg := Aggregate{XLabel: "Line", YLabel: "Total Daily Footfall"}
	agg.setCounts(sumBy(lines, footfall))
	return agg, nil
}

func countsOf(column, xLabel string) func(*dataset.Table) (Aggregate, error) {
	return func(t *dataset.Table) (Aggregate, error) {
		if err := needColumns(t, "LUAS", column); err != nil {
			return Aggregate{}, err
		}
		values, _ := t.Column(column)
		agg := Aggregate{XLabel: xLabel, YLabel: "Number of Stations"}
		agg.setCounts(valueCounts(values))
		return agg, nil
	}
}

func nearbyLandmarks(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "LUAS", "Nearby Landmarks"); err != nil {
		return Aggregate{}, err
	}
	agg := Aggregate{XLabel: "Station", YLabel: "Number of Landmarks"}
	for i, row := range t.Rows {
		label := t.Value(row, "Station Name")
		if label == "" {
			label = itoa(i)
		}
		agg.Labels = append(agg.Labels, label)
		agg.Values = append(agg.Values, float64(dataset.SplitCount(t.Value(row, "Nearby Landmarks"))))
	}
	return agg, nil
}

func stationsPerZone(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "LUAS", "Station Name", "Zone"); err != nil {
		return Aggregate{}, err
	}
	zones := lo.FilterMap(t.Rows, func(row []string, _ int) (string, bool) {
		return t.Value(row, "Zone"), strings.TrimSpace(t.Value(row, "Station Name")) != ""
	})
	agg := Aggregate{XLabel: "Zone", YLabel: "Number of Stations"}
	agg.setCounts(valueCounts(zones))
	return agg, nil
}

func accessibilityByZone(t *dataset.Table) (Aggregate, error) {
	if err := needColumns(t, "LUAS", "Accessibility", "Zone"); err != nil {
		return Aggregate{}, err
	}
	pairs := lo.FilterMap(t.Rows, func(row []string, _ int) (string, bool) {
		zone, access := t.Value(row, "Zone"), t.Value(row, "Accessibility")
		return zone + " / " + access, zone != "" && access != ""
	})
	var agg Aggregate
	agg.setCounts(valueCounts(pairs))
	return agg, nil
}

func notLoaded(mode string) error {
	return fmt.Errorf("%w: %s dataset is not loaded", ErrNoData, mode)
}

// correlationOf builds the Pearson matrix of a mode's numeric columns.
// Undefined coefficients are drawn as 0.
func correlationOf(mode string) func(*dataset.Table) (Aggregate, error) {
	return func(t *dataset.Table) (Aggregate, error) {
		if t == nil {
			return Aggregate{}, notLoaded(mode)
		}
		columns, matrix := t.Correlation()
		if len(columns) == 0 {
			return Aggregate{}, fmt.Errorf("%w: no numeric columns found in %s dataset", ErrNoData, mode)
		}
		for _, row := range matrix {
			for j, v := range row {
				if math.IsNaN(v) {
					row[j] = 0
				}
			}
		}
		return Aggregate{Labels: columns, Columns: columns, Matrix: matrix}, nil
	}
}

// missingValuesOf reports the empty cells per column as they were in the
// file, before any filling.
func missingValuesOf(mode string) func(*dataset.Table) (Aggregate, error) {
	return func(t *dataset.Table) (Aggregate, error) {
		if t == nil {
			return Aggregate{}, notLoaded(mode)
		}
		missing := t.Missing
		if missing == nil {
			missing = t.MissingCounts()
		}
		agg := Aggregate{XLabel: "Column", YLabel: "Missing Values", Labels: slices.Clone(t.Columns)}
		agg.Values = lo.Map(t.Columns, func(c string, _ int) float64 { return float64(missing[c]) })
		return agg, nil
	}
}
