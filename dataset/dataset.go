// Package dataset loads the BUS, DART and LUAS flat files into in-memory
// tables and applies the null-filling and text normalisation the charts rely on.
package dataset

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/encoding/charmap"
)

// ErrMissingColumn is returned when a table lacks a column a caller asked for.
var ErrMissingColumn = errors.New("column not found")

// Table is a loaded CSV file. Every cell is kept as text; an empty cell is a
// missing value.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	// Missing holds the empty-cell counts per column as read from the file,
	// before any filling. LoadAll sets it.
	Missing map[string]int

	index map[string]int
}

// Load reads a latin1-encoded CSV file whose first line is the header.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return t, nil
}

// Read parses a latin1-encoded CSV stream.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = lo.Map(header, func(h string, _ int) string { return strings.TrimSpace(h) })

	t := &Table{Columns: header}
	t.reindex()

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		// Short rows are padded so every row has one cell per column.
		row := make([]string, len(header))
		copy(row, record)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether every named column exists.
func (t *Table) Has(columns ...string) bool {
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			return false
		}
	}
	return true
}

// Column returns the values of a column.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, name, t.Name)
	}
	return lo.Map(t.Rows, func(row []string, _ int) string { return row[i] }), nil
}

// Floats parses a numeric column. Thousands separators are removed, so
// "12,500" reads as 12500. Missing or unparseable cells are skipped and their
// row indexes are not returned.
func (t *Table) Floats(name string) ([]float64, []int, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, nil, err
	}
	out := make([]float64, 0, len(values))
	rows := make([]int, 0, len(values))
	for i, v := range values {
		f, ok := ParseNumber(v)
		if !ok {
			continue
		}
		out = append(out, f)
		rows = append(rows, i)
	}
	return out, rows, nil
}

// ParseNumber reads a number that may carry thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// SplitCount is the number of comma-separated items in a cell; an empty cell
// still counts as one, matching how the source lists were counted.
func SplitCount(cell string) int {
	return len(strings.Split(cell, ","))
}

// SplitItems returns the trimmed, non-empty comma-separated items of a cell.
func SplitItems(cell string) []string {
	items := lo.Map(strings.Split(cell, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Compact(items)
}

// FillMissing replaces empty cells of column with value.
func (t *Table) FillMissing(column, value string) error {
	i, ok := t.index[column]
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrMissingColumn, column, t.Name)
	}
	for _, row := range t.Rows {
		if strings.TrimSpace(row[i]) == "" {
			row[i] = value
		}
	}
	return nil
}

// MissingCounts reports the number of empty cells per column.
func (t *Table) MissingCounts() map[string]int {
	counts := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		counts[c] = lo.CountBy(t.Rows, func(row []string) bool { return strings.TrimSpace(row[i]) == "" })
	}
	return counts
}

// IsNumeric reports whether every non-empty cell of column parses as a number.
// Columns with no values at all are not numeric.
func (t *Table) IsNumeric(column string) bool {
	values, err := t.Column(column)
	if err != nil {
		return false
	}
	seen := false
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// Normalize trims and lowercases every text column. Numeric columns are left
// as they are.
func (t *Table) Normalize() {
	for i, c := range t.Columns {
		if t.IsNumeric(c) {
			continue
		}
		for _, row := range t.Rows {
			row[i] = strings.ToLower(strings.TrimSpace(row[i]))
		}
	}
}

// Sort orders rows by a numeric column, descending when desc is set; rows whose
// value does not parse go last. The sort is stable.
func (t *Table) Sort(column string, desc bool) (*Table, error) {
	i, ok := t.index[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, column, t.Name)
	}
	out := t.clone()
	key := func(row []string) (float64, bool) { return ParseNumber(row[i]) }
	slices.SortStableFunc(out.Rows, func(a, b []string) int {
		fa, oka := key(a)
		fb, okb := key(b)
		switch {
		case oka && !okb:
			return -1
		case !oka && okb:
			return 1
		case desc:
			return cmp.Compare(fb, fa)
		default:
			return cmp.Compare(fa, fb)
		}
	})
	return out, nil
}

// WithColumn returns a copy of the table with a derived column appended.
func (t *Table) WithColumn(name string, derive func(row []string) string) *Table {
	out := t.clone()
	out.Columns = append(out.Columns, name)
	for i, row := range out.Rows {
		out.Rows[i] = append(row, derive(row))
	}
	out.reindex()
	return out
}

// Value returns the named cell of a row, or "" if the column does not exist.
func (t *Table) Value(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (t *Table) clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
		Missing: maps.Clone(t.Missing),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	out.reindex()
	return out
}
