package dataset

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// NumericStats describes the parsed values of a numeric column.
type NumericStats struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// ColumnSummary is the exploratory summary of one column. Text columns carry
// their most frequent value; numeric columns carry Stats.
type ColumnSummary struct {
	Column  string        `json:"column"`
	Count   int           `json:"count"`
	Missing int           `json:"missing"`
	Unique  int           `json:"unique"`
	Numeric bool          `json:"numeric"`
	Top     string        `json:"top,omitempty"`
	Freq    int           `json:"freq,omitempty"`
	Stats   *NumericStats `json:"stats,omitempty"`
}

// Describe summarises every column in table order.
func (t *Table) Describe() []ColumnSummary {
	out := make([]ColumnSummary, 0, len(t.Columns))
	for _, c := range t.Columns {
		values, _ := t.Column(c)
		present := lo.Filter(values, func(v string, _ int) bool { return strings.TrimSpace(v) != "" })

		s := ColumnSummary{
			Column:  c,
			Count:   len(present),
			Missing: len(values) - len(present),
			Unique:  len(lo.Uniq(present)),
			Numeric: t.IsNumeric(c),
		}
		if s.Numeric {
			nums, _, _ := t.Floats(c)
			s.Stats = describeNumbers(nums)
		} else if len(present) > 0 {
			s.Top, s.Freq = mostFrequent(present)
		}
		out = append(out, s)
	}
	return out
}

// describeNumbers uses nearest-rank quartiles. The standard deviation is the
// sample one and is zero for fewer than two values.
func describeNumbers(values []float64) *NumericStats {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := &NumericStats{
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	return s
}

// mostFrequent returns the commonest value; ties go to the smaller value.
func mostFrequent(values []string) (string, int) {
	counts := lo.CountValues(values)
	keys := lo.Keys(counts)
	slices.SortFunc(keys, func(a, b string) int {
		if counts[a] != counts[b] {
			return cmp.Compare(counts[b], counts[a])
		}
		return cmp.Compare(a, b)
	})
	return keys[0], counts[keys[0]]
}

// NumericColumns lists the columns whose every value is a number.
func (t *Table) NumericColumns() []string {
	return lo.Filter(t.Columns, func(c string, _ int) bool { return t.IsNumeric(c) })
}

// Correlation returns the Pearson correlation matrix of the numeric columns.
// Each pair uses the rows where both cells parse. A pair with fewer than two
// such rows, or with a constant column, is NaN.
func (t *Table) Correlation() ([]string, [][]float64) {
	columns := t.NumericColumns()
	idx := lo.Map(columns, func(c string, _ int) int { return t.index[c] })

	matrix := make([][]float64, len(columns))
	for i := range columns {
		matrix[i] = make([]float64, len(columns))
		for j := range columns {
			if j < i {
				matrix[i][j] = matrix[j][i]
				continue
			}
			matrix[i][j] = t.pearson(idx[i], idx[j])
		}
	}
	return columns, matrix
}

func (t *Table) pearson(a, b int) float64 {
	var xs, ys []float64
	for _, row := range t.Rows {
		x, okx := ParseNumber(row[a])
		y, oky := ParseNumber(row[b])
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// Head returns up to n rows from the top of the table.
func (t *Table) Head(n int) [][]string {
	return t.Rows[:min(n, len(t.Rows))]
}
