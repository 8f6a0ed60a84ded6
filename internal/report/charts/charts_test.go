package charts

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/report"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

func ages(name string, values ...any) *dataset.Dataset {
	rows := make([]tabular.Row, len(values))
	for i, v := range values {
		rows[i] = tabular.Row{"col": v}
	}
	return dataset.New(name, tabular.NewFrame([]string{"col"}, rows), dataset.FieldMapping{"f": "col"})
}

func TestCategoricalBar(t *testing.T) {
	a := ages("A", "M", "F", "F", nil)
	b := ages("B", "X", "F")

	fig, err := CategoricalBar(context.Background(), []*dataset.Dataset{a, b}, report.Config{"field": "f"})
	require.NoError(t, err)

	f := fig.(*Figure)
	require.Len(t, f.Traces, 2)

	want := []Trace{
		{Name: "A", X: []any{"F", "M", "X"}, Y: []float64{2, 1, 0}},
		{Name: "B", X: []any{"F", "M", "X"}, Y: []float64{1, 0, 1}},
	}
	if diff := cmp.Diff(want, f.Traces); diff != "" {
		t.Errorf("traces mismatch (-want +got):\n%s", diff)
	}
}

func TestContinuousBar(t *testing.T) {
	a := ages("A", 0.0, 1.0, 2.0, 10.0)
	b := ages("B", 5.0, nil)

	fig, err := ContinuousBar(context.Background(), []*dataset.Dataset{a, b}, report.Config{"field": "f", "bins": 2})
	require.NoError(t, err)

	f := fig.(*Figure)
	require.Len(t, f.Traces, 2)
	assert.Equal(t, []any{2.5, 7.5}, f.Traces[0].X)
	assert.Equal(t, []float64{3, 1}, f.Traces[0].Y)
	assert.Equal(t, []float64{0, 1}, f.Traces[1].Y)
}

func TestContinuousBar_SingleValueAndEmpty(t *testing.T) {
	fig, err := ContinuousBar(context.Background(), []*dataset.Dataset{ages("A", 3.0, 3.0)}, report.Config{"field": "f", "bins": 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, fig.(*Figure).Traces[0].Y)

	fig, err = ContinuousBar(context.Background(), []*dataset.Dataset{ages("A", nil)}, report.Config{"field": "f"})
	require.NoError(t, err)
	assert.Empty(t, fig.(*Figure).Traces[0].Y)
}

func TestCharts_Errors(t *testing.T) {
	ds := []*dataset.Dataset{ages("A", 1.0)}

	_, err := CategoricalBar(context.Background(), ds, report.Config{})
	assert.Error(t, err)

	_, err = ContinuousBar(context.Background(), ds, report.Config{"field": "age"})
	assert.ErrorIs(t, err, dataset.ErrUnknownField)

	_, err = ContinuousBar(context.Background(), ds, report.Config{"field": "f", "bins": 0})
	assert.Error(t, err)
}

func TestFigure_ToPortableFigure(t *testing.T) {
	f := &Figure{Title: "sex", XTitle: "sex", YTitle: "count", Traces: []Trace{
		{Name: "A", X: []any{"F"}, Y: []float64{1}},
	}}

	got := f.ToPortableFigure()
	want := map[string]any{
		"data": []any{map[string]any{"type": "bar", "name": "A", "x": []any{"F"}, "y": []float64{1}}},
		"layout": map[string]any{
			"title":   map[string]any{"text": "sex"},
			"barmode": "group",
			"xaxis":   map[string]any{"title": map[string]any{"text": "sex"}},
			"yaxis":   map[string]any{"title": map[string]any{"text": "count"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("figure mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistered(t *testing.T) {
	assert.Equal(t, []string{"categorical_bar_chart", "continuous_bar_chart"}, report.Charts.Names())
}
