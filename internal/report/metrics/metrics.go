// Package metrics registers the built-in data-quality metrics.
// Import this package to ensure all metrics are registered.
package metrics

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/report"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

func init() {
	report.RegisterMetric("HillNumbers", report.MetricFunc(HillNumbers))
	report.RegisterMetric("IQR", report.MetricFunc(IQR))
	report.RegisterMetric("Range", report.MetricFunc(Range))
	report.RegisterMetric("CurrencyHeinrich", report.MetricFunc(CurrencyHeinrich))
	report.RegisterMetric("Completeness", report.MetricFunc(Completeness))
	report.RegisterMetric("Mean", report.MetricFunc(Mean))
}

// numbers returns the finite numeric values of the configured column.
func numbers(ds *dataset.Dataset, cfg report.Config) ([]float64, error) {
	col, err := cfg.Required("column")
	if err != nil {
		return nil, err
	}
	values, err := ds.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := tabular.Float(v); ok && !math.IsInf(f, 0) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Range is the spread between the largest and smallest value of a column.
func Range(_ context.Context, ds *dataset.Dataset, cfg report.Config) (report.MetricValue, error) {
	xs, err := numbers(ds, cfg)
	if err != nil {
		return report.MetricValue{}, err
	}
	v := math.NaN()
	if len(xs) > 0 {
		v = slices.Max(xs) - slices.Min(xs)
	}
	return report.MetricValue{
		Value:       v,
		Dimension:   "variety",
		Description: fmt.Sprintf("range of %s", cfg.String("column", "")),
	}, nil
}

// IQR is the interquartile range of a column, with quartiles linearly
// interpolated between order statistics.
func IQR(_ context.Context, ds *dataset.Dataset, cfg report.Config) (report.MetricValue, error) {
	xs, err := numbers(ds, cfg)
	if err != nil {
		return report.MetricValue{}, err
	}
	v := math.NaN()
	if len(xs) > 0 {
		slices.Sort(xs)
		v = quantile(xs, 0.75) - quantile(xs, 0.25)
	}
	return report.MetricValue{
		Value:       v,
		Dimension:   "variety",
		Description: fmt.Sprintf("interquartile range of %s", cfg.String("column", "")),
	}, nil
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Mean is the arithmetic mean of a column.
func Mean(_ context.Context, ds *dataset.Dataset, cfg report.Config) (report.MetricValue, error) {
	xs, err := numbers(ds, cfg)
	if err != nil {
		return report.MetricValue{}, err
	}
	v := math.NaN()
	if len(xs) > 0 {
		v = report.Mean(xs)
	}
	return report.MetricValue{
		Value:       v,
		Dimension:   "representativeness",
		Description: fmt.Sprintf("mean of %s", cfg.String("column", "")),
	}, nil
}

// Completeness is the share of rows whose column is not null.
func Completeness(_ context.Context, ds *dataset.Dataset, cfg report.Config) (report.MetricValue, error) {
	col, err := cfg.Required("column")
	if err != nil {
		return report.MetricValue{}, err
	}
	values, err := ds.Column(col)
	if err != nil {
		return report.MetricValue{}, err
	}
	v := math.NaN()
	if len(values) > 0 {
		present := 0
		for _, x := range values {
			if !tabular.IsNull(x) {
				present++
			}
		}
		v = float64(present) / float64(len(values))
	}
	return report.MetricValue{
		Value:       v,
		Dimension:   "completeness",
		Description: fmt.Sprintf("share of rows with %s", col),
	}, nil
}

// HillNumbers is the effective number of categories of order q:
//
//	D_q = (sum p_i^q)^(1/(1-q)),  D_1 = exp(-sum p_i ln p_i)
//
// When types is set, only those categories are counted. A type is matched
// by its label, or by position in the sorted list of observed labels when
// it is an integer that matches no label.
func HillNumbers(_ context.Context, ds *dataset.Dataset, cfg report.Config) (report.MetricValue, error) {
	col, err := cfg.Required("column")
	if err != nil {
		return report.MetricValue{}, err
	}
	values, err := ds.Column(col)
	if err != nil {
		return report.MetricValue{}, err
	}
	q := cfg.Float("q", 1)
	if q < 0 {
		return report.MetricValue{}, fmt.Errorf("order q must be non-negative, got %v", q)
	}

	counts := make(map[string]int)
	for _, v := range values {
		if label, ok := tabular.Text(v); ok {
			counts[label]++
		}
	}

	if types := cfg.List("types"); types != nil {
		counts = selectTypes(counts, types)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	v := math.NaN()
	if total > 0 {
		v = hill(counts, total, q)
	}
	return report.MetricValue{
		Value:       v,
		Dimension:   "variety",
		Description: fmt.Sprintf("Hill number of order %g over %s", q, col),
	}, nil
}

func selectTypes(counts map[string]int, types []any) map[string]int {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	out := make(map[string]int, len(types))
	for _, t := range types {
		label, ok := tabular.Text(t)
		if !ok {
			continue
		}
		if n, found := counts[label]; found {
			out[label] = n
			continue
		}
		if f, ok := tabular.Float(t); ok && f == math.Trunc(f) && f >= 0 && int(f) < len(labels) {
			l := labels[int(f)]
			out[l] = counts[l]
			continue
		}
		out[label] = 0
	}
	return out
}

func hill(counts map[string]int, total int, q float64) float64 {
	if q == 1 {
		var h float64
		for _, n := range counts {
			if n == 0 {
				continue
			}
			p := float64(n) / float64(total)
			h -= p * math.Log(p)
		}
		return math.Exp(h)
	}
	var s float64
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		s += math.Pow(p, q)
	}
	return math.Pow(s, 1/(1-q))
}

// CurrencyHeinrich is the mean of exp(-A * age) over the records, where age
// is the time in seconds since a record's created-at field. Fresh data
// scores near 1 and decays towards 0.
//
// Options: created_at_field (default "created_at"), A (default 1e-9) and
// now, an optional RFC 3339 reference time.
func CurrencyHeinrich(_ context.Context, ds *dataset.Dataset, cfg report.Config) (report.MetricValue, error) {
	field := cfg.String("created_at_field", "created_at")
	values, err := ds.Column(field)
	if err != nil {
		return report.MetricValue{}, err
	}
	a := cfg.Float("A", 1e-9)
	if a < 0 {
		return report.MetricValue{}, fmt.Errorf("decline rate A must be non-negative, got %v", a)
	}

	now := time.Now().UTC()
	if ref := cfg.String("now", ""); ref != "" {
		t, err := time.Parse(time.RFC3339, ref)
		if err != nil {
			return report.MetricValue{}, fmt.Errorf("invalid reference time %q: %w", ref, err)
		}
		now = t
	}

	var sum float64
	n := 0
	for _, v := range values {
		t, ok := tabular.TimeValue(v)
		if !ok {
			continue
		}
		age := math.Max(now.Sub(t).Seconds(), 0)
		sum += math.Exp(-a * age)
		n++
	}

	v := math.NaN()
	if n > 0 {
		v = sum / float64(n)
	}
	return report.MetricValue{
		Value:       v,
		Dimension:   "currency",
		Description: fmt.Sprintf("Heinrich currency of %s", field),
	}, nil
}
