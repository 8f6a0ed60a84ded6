// Package charts registers the built-in report charts. Figures follow the
// Plotly figure layout ({"data": [...], "layout": {...}}) so any Plotly
// client can draw them.
package charts

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/report"
	"github.com/JonMunkholm/dataquality/internal/serialize"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

func init() {
	report.RegisterChart("categorical_bar_chart", report.ChartFunc(CategoricalBar))
	report.RegisterChart("continuous_bar_chart", report.ChartFunc(ContinuousBar))
}

// DefaultBins is the histogram bin count of continuous bar charts.
const DefaultBins = 10

// Trace is one series of a figure.
type Trace struct {
	Name string
	X    []any
	Y    []float64
}

// Figure is a grouped bar chart.
type Figure struct {
	Title  string
	XTitle string
	YTitle string
	Traces []Trace
}

// ToPortableFigure exports the figure as a Plotly dictionary.
func (f *Figure) ToPortableFigure() map[string]any {
	data := make([]any, len(f.Traces))
	for i, t := range f.Traces {
		data[i] = map[string]any{
			"type": "bar",
			"name": t.Name,
			"x":    t.X,
			"y":    t.Y,
		}
	}
	return map[string]any{
		"data": data,
		"layout": map[string]any{
			"title":   map[string]any{"text": f.Title},
			"barmode": "group",
			"xaxis":   map[string]any{"title": map[string]any{"text": f.XTitle}},
			"yaxis":   map[string]any{"title": map[string]any{"text": f.YTitle}},
		},
	}
}

var _ serialize.PortableFigure = (*Figure)(nil)

// CategoricalBar counts each label of a field, one trace per dataset. The
// x axis is the sorted union of labels across datasets.
func CategoricalBar(_ context.Context, datasets []*dataset.Dataset, cfg report.Config) (serialize.PortableFigure, error) {
	field, err := cfg.Required("field")
	if err != nil {
		return nil, err
	}

	perDataset := make([]map[string]int, len(datasets))
	seen := make(map[string]bool)
	for i, ds := range datasets {
		values, err := ds.Column(field)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", ds.Name(), err)
		}
		counts := make(map[string]int)
		for _, v := range values {
			if label, ok := tabular.Text(v); ok {
				counts[label]++
				seen[label] = true
			}
		}
		perDataset[i] = counts
	}

	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	x := make([]any, len(labels))
	for i, l := range labels {
		x[i] = l
	}

	fig := &Figure{Title: field, XTitle: field, YTitle: "count"}
	for i, ds := range datasets {
		y := make([]float64, len(labels))
		for j, l := range labels {
			y[j] = float64(perDataset[i][l])
		}
		fig.Traces = append(fig.Traces, Trace{Name: ds.Name(), X: x, Y: y})
	}
	return fig, nil
}

// ContinuousBar is a histogram of a numeric field with shared bins across
// datasets. Bars are placed at bin centers. Option bins sets the bin count.
func ContinuousBar(_ context.Context, datasets []*dataset.Dataset, cfg report.Config) (serialize.PortableFigure, error) {
	field, err := cfg.Required("field")
	if err != nil {
		return nil, err
	}
	bins := cfg.Int("bins", DefaultBins)
	if bins <= 0 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}

	columns := make([][]float64, len(datasets))
	var all []float64
	for i, ds := range datasets {
		values, err := ds.Column(field)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", ds.Name(), err)
		}
		for _, v := range values {
			if f, ok := tabular.Float(v); ok && !math.IsInf(f, 0) {
				columns[i] = append(columns[i], f)
			}
		}
		all = append(all, columns[i]...)
	}

	fig := &Figure{Title: field, XTitle: field, YTitle: "count"}
	if len(all) == 0 {
		for _, ds := range datasets {
			fig.Traces = append(fig.Traces, Trace{Name: ds.Name(), X: []any{}, Y: []float64{}})
		}
		return fig, nil
	}

	lo, hi := slices.Min(all), slices.Max(all)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)

	x := make([]any, bins)
	for b := range bins {
		x[b] = lo + width*(float64(b)+0.5)
	}

	for i, ds := range datasets {
		y := make([]float64, bins)
		for _, f := range columns[i] {
			b := int((f - lo) / width)
			if b >= bins {
				b = bins - 1
			}
			y[b]++
		}
		fig.Traces = append(fig.Traces, Trace{Name: ds.Name(), X: x, Y: y})
	}
	return fig, nil
}
