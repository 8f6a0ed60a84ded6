// Package tabular holds the in-memory table representation shared by the
// dataset, query and report packages, the CSV reader that produces it, and
// the stores that registered tables are materialized into.
//
// A cell is one of float64, string or nil. nil is the only null marker:
// empty CSV cells, NaN and SQL NULL all become nil on the way in.
package tabular

import (
	"math"
	"slices"
)

// Row maps column name to cell value.
type Row map[string]any

// Frame is an ordered set of rows sharing one column list.
type Frame struct {
	Columns []string
	Rows    []Row
}

// NewFrame creates a frame over columns and rows. Rows are used as given.
func NewFrame(columns []string, rows []Row) *Frame {
	return &Frame{Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// HasColumn reports whether name is one of the frame's columns.
func (f *Frame) HasColumn(name string) bool {
	return slices.Contains(f.Columns, name)
}

// Column returns every row's value for name, nil where the row lacks it.
func (f *Frame) Column(name string) []any {
	out := make([]any, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[name]
	}
	return out
}

// Clone returns a deep copy of the frame's column list and rows.
// Cell values are immutable scalars, so copying the maps is enough.
func (f *Frame) Clone() *Frame {
	rows := make([]Row, len(f.Rows))
	for i, r := range f.Rows {
		c := make(Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		rows[i] = c
	}
	return &Frame{Columns: slices.Clone(f.Columns), Rows: rows}
}

// Select returns a new frame holding the rows whose mask entry is true.
// mask must have one entry per row.
func (f *Frame) Select(mask []bool) *Frame {
	out := &Frame{Columns: slices.Clone(f.Columns)}
	for i, keep := range mask {
		if keep && i < len(f.Rows) {
			out.Rows = append(out.Rows, f.Rows[i])
		}
	}
	return out
}

// Head returns the first n rows as a new frame.
func (f *Frame) Head(n int) *Frame {
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	return &Frame{Columns: slices.Clone(f.Columns), Rows: slices.Clone(f.Rows[:n])}
}

// MissingValues counts null cells per column.
func (f *Frame) MissingValues() map[string]int {
	out := make(map[string]int, len(f.Columns))
	for _, c := range f.Columns {
		out[c] = 0
	}
	for _, r := range f.Rows {
		for _, c := range f.Columns {
			if IsNull(r[c]) {
				out[c]++
			}
		}
	}
	return out
}

// NumericColumn reports whether every non-null value of the column is a float64.
// A column with no values at all is not numeric.
func (f *Frame) NumericColumn(name string) bool {
	seen := false
	for _, r := range f.Rows {
		v := r[name]
		if v == nil {
			continue
		}
		if _, ok := v.(float64); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// IsNull reports whether v is the null marker. NaN counts as null so values
// produced by arithmetic are treated like missing cells.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}
