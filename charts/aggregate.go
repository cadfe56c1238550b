// Package charts derives small aggregates from the loaded mode tables and
// renders them as PNG charts.
package charts

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/dataset"
)

// ErrMissingColumn is matched by every error a view returns when its table
// lacks a column it reads.
var ErrMissingColumn = dataset.ErrMissingColumn

// Kind is the chart type a view renders.
type Kind string

const (
	KindBar     Kind = "bar"
	KindPie     Kind = "pie"
	KindScatter Kind = "scatter"
	KindLine    Kind = "line"
	KindHeatmap Kind = "heatmap"
	KindTreemap Kind = "treemap"
)

// Aggregate is the derived data one chart draws. Category charts use
// Labels/Values; scatter charts use X/Y. A matrix heatmap uses Labels for its
// rows, Columns for its columns and Matrix for the cells.
type Aggregate struct {
	Title   string      `json:"title"`
	Kind    Kind        `json:"kind"`
	XLabel  string      `json:"xLabel,omitempty"`
	YLabel  string      `json:"yLabel,omitempty"`
	Labels  []string    `json:"labels,omitempty"`
	Values  []float64   `json:"values,omitempty"`
	X       []float64   `json:"x,omitempty"`
	Y       []float64   `json:"y,omitempty"`
	Columns []string    `json:"columns,omitempty"`
	Matrix  [][]float64 `json:"matrix,omitempty"`
}

// Len is the number of data points.
func (a Aggregate) Len() int {
	switch {
	case a.Kind == KindScatter:
		return len(a.X)
	case a.Matrix != nil:
		return len(a.Matrix) * len(a.Columns)
	}
	return len(a.Labels)
}

// MissingColumnError names the columns a view needed.
type MissingColumnError struct {
	Mode    string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	quoted := lo.Map(e.Columns, func(c string, _ int) string { return "'" + c + "'" })
	if len(quoted) == 1 {
		return fmt.Sprintf("Column %s not found in %s dataset.", quoted[0], e.Mode)
	}
	return fmt.Sprintf("Columns %s not found in %s dataset.", strings.Join(quoted, " or "), e.Mode)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

func needColumns(t *dataset.Table, mode string, columns ...string) error {
	if t == nil || !t.Has(columns...) {
		return &MissingColumnError{Mode: mode, Columns: columns}
	}
	return nil
}

type count struct {
	label string
	value float64
}

// valueCounts counts the non-empty values of a column, most frequent first.
func valueCounts(values []string) []count {
	counts := lo.CountValues(lo.Filter(values, func(v string, _ int) bool { return strings.TrimSpace(v) != "" }))
	out := lo.MapToSlice(counts, func(k string, v int) count { return count{label: k, value: float64(v)} })
	sortCounts(out)
	return out
}

// sortCounts orders by value descending, then label ascending.
func sortCounts(c []count) {
	slices.SortStableFunc(c, func(a, b count) int {
		if a.value != b.value {
			return cmp.Compare(b.value, a.value)
		}
		return cmp.Compare(a.label, b.label)
	})
}

// sumBy adds values per group label, keeping groups in ascending label order.
func sumBy(groups []string, values []float64) []count {
	sums := make(map[string]float64)
	for i, g := range groups {
		sums[g] += values[i]
	}
	keys := lo.Keys(sums)
	slices.Sort(keys)
	return lo.Map(keys, func(k string, _ int) count { return count{label: k, value: sums[k]} })
}

func (a *Aggregate) setCounts(c []count) {
	a.Labels = lo.Map(c, func(x count, _ int) string { return x.label })
	a.Values = lo.Map(c, func(x count, _ int) float64 { return x.value })
}

func itoa(i int) string { return strconv.Itoa(i) }
