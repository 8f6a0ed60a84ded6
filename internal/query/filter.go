package query

import (
	"fmt"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

// Filter evaluates p against each row environment and returns the
// selection vector. The all-select predicate yields an all-true mask.
//
// Every name the predicate reads must be a key of at least one row; a row
// that lacks a known key sees it as null.
func Filter(rows []map[string]any, p Predicate) ([]bool, error) {
	if len(rows) == 0 {
		return filter(rows, p, nil)
	}
	return filter(rows, p, func(name string) bool {
		for _, r := range rows {
			if _, ok := r[name]; ok {
				return true
			}
		}
		return false
	})
}

func filter(rows []map[string]any, p Predicate, known func(string) bool) ([]bool, error) {
	prog, err := Compile(p)
	if err != nil {
		return nil, err
	}
	if known != nil {
		if err := prog.CheckNames(known); err != nil {
			return nil, err
		}
	}
	return prog.Mask(rows)
}

// ApplyFrame filters a raw table, evaluating p against each row's columns.
func ApplyFrame(frame *tabular.Frame, p Predicate) (*tabular.Frame, error) {
	if p.All() {
		return frame.Clone(), nil
	}
	rows := make([]map[string]any, frame.Len())
	for i, r := range frame.Rows {
		rows[i] = r
	}
	mask, err := filter(rows, p, frame.HasColumn)
	if err != nil {
		return nil, err
	}
	return frame.Select(mask), nil
}

// Apply filters a dataset. Rows are evaluated with their raw columns
// overlaid by the dataset's semantic fields.
func Apply(ds *dataset.Dataset, p Predicate) (*dataset.Dataset, error) {
	mask, err := filter(ds.FieldFrame(), p, func(name string) bool {
		return ds.HasField(name) || ds.HasColumn(name)
	})
	if err != nil {
		return nil, fmt.Errorf("filter dataset %s: %w", ds.Name(), err)
	}
	return ds.Subset(mask), nil
}
