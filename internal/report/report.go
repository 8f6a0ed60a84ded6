// Package report binds named metrics and charts to datasets, runs them and
// groups the results into quality clusters with one score each.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/logging"
	"github.com/JonMunkholm/dataquality/internal/serialize"
)

type binding struct {
	cluster string
	metric  string
	cfg     Config
	dataset string
}

type chartSpec struct {
	cluster   string
	chartType string
	cfg       Config
}

// Result is the output of Generate.
type Result struct {
	// Metrics holds each cluster's values in registration order.
	Metrics map[string][]MetricValue

	// Charts holds one figure per cluster. A later chart registered under
	// the same cluster replaces an earlier one.
	Charts map[string]serialize.PortableFigure

	// Scores holds the reduced value of every cluster with at least one
	// finite metric value.
	Scores map[string]float64

	// Failures lists bindings that failed. Always empty in fail-fast mode.
	Failures []Failure
}

// Report holds datasets plus the metric bindings and chart specs to run
// against them. A Report is not safe for concurrent use.
type Report struct {
	datasets []*dataset.Dataset
	byName   map[string]*dataset.Dataset

	bindings []binding
	charts   []chartSpec

	metrics  *Registry[Metric]
	chartReg *Registry[Chart]
	reducer  Reducer
	partial  bool
	logger   *slog.Logger
}

// Option configures a Report.
type Option func(*Report)

// WithMetricRegistry replaces the default metric registry.
func WithMetricRegistry(r *Registry[Metric]) Option {
	return func(rep *Report) { rep.metrics = r }
}

// WithChartRegistry replaces the default chart registry.
func WithChartRegistry(r *Registry[Chart]) Option {
	return func(rep *Report) { rep.chartReg = r }
}

// WithReducer sets the cluster score reducer.
func WithReducer(fn Reducer) Option {
	return func(rep *Report) {
		if fn != nil {
			rep.reducer = fn
		}
	}
}

// WithPartialResults keeps running after a failed binding and reports the
// failure in Result.Failures instead of aborting Generate.
func WithPartialResults() Option {
	return func(rep *Report) { rep.partial = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rep *Report) { rep.logger = l }
}

// New creates a report over datasets. Datasets are looked up by name; a
// later dataset with a duplicate name shadows an earlier one.
func New(datasets []*dataset.Dataset, opts ...Option) *Report {
	r := &Report{
		datasets: datasets,
		byName:   make(map[string]*dataset.Dataset, len(datasets)),
		metrics:  Metrics,
		chartReg: Charts,
		reducer:  Mean,
		logger:   logging.New("report"),
	}
	for _, ds := range datasets {
		r.byName[ds.Name()] = ds
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddMetric registers a binding. Nothing runs until Generate.
func (r *Report) AddMetric(cluster, metric string, cfg Config, datasetName string) {
	r.bindings = append(r.bindings, binding{
		cluster: cluster,
		metric:  metric,
		cfg:     cfg.Clone(),
		dataset: datasetName,
	})
}

// AddChart registers a chart spec. Nothing runs until Generate.
func (r *Report) AddChart(cluster, chartType string, cfg Config) {
	r.charts = append(r.charts, chartSpec{cluster: cluster, chartType: chartType, cfg: cfg.Clone()})
}

// Generate validates every binding and chart, then runs them in
// registration order. Validation errors are returned before any capability
// is invoked. In fail-fast mode the first capability error aborts the call
// and is returned as a *MetricError.
func (r *Report) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()

	if err := r.validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Metrics: make(map[string][]MetricValue),
		Charts:  make(map[string]serialize.PortableFigure),
		Scores:  make(map[string]float64),
	}

	for _, b := range r.bindings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, _ := r.metrics.Get(b.metric)
		ds := r.byName[b.dataset]

		v, err := m.Compute(ctx, ds, b.cfg)
		if err != nil {
			merr := &MetricError{Cluster: b.cluster, Name: b.metric, Dataset: b.dataset, Err: err}
			if !r.partial {
				return nil, merr
			}
			r.logger.Warn("metric failed", "cluster", b.cluster, "metric", b.metric,
				"dataset", b.dataset, "error", err)
			res.Failures = append(res.Failures, failureOf(merr))
			continue
		}

		v.Metric = b.metric
		v.Dataset = b.dataset
		res.Metrics[b.cluster] = append(res.Metrics[b.cluster], v)
	}

	for _, c := range r.charts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chart, _ := r.chartReg.Get(c.chartType)
		fig, err := chart.Render(ctx, r.datasets, c.cfg)
		if err != nil {
			merr := &MetricError{Cluster: c.cluster, Name: c.chartType, Err: err}
			if !r.partial {
				return nil, merr
			}
			r.logger.Warn("chart failed", "cluster", c.cluster, "chart", c.chartType, "error", err)
			res.Failures = append(res.Failures, failureOf(merr))
			continue
		}
		res.Charts[c.cluster] = fig
	}

	for cluster, values := range res.Metrics {
		finite := make([]float64, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v.Value) && !math.IsInf(v.Value, 0) {
				finite = append(finite, v.Value)
			}
		}
		if len(finite) == 0 {
			continue
		}
		// A reducer can overflow finite inputs; such a cluster has no score.
		if score := r.reducer(finite); !math.IsNaN(score) && !math.IsInf(score, 0) {
			res.Scores[cluster] = score
		} else {
			r.logger.Warn("cluster score not finite", "cluster", cluster, "score", score)
		}
	}

	r.logger.Debug("report generated",
		"bindings", len(r.bindings),
		"charts", len(r.charts),
		"clusters", len(res.Scores),
		"failures", len(res.Failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

func (r *Report) validate() error {
	var errs []error
	for _, b := range r.bindings {
		if _, ok := r.byName[b.dataset]; !ok {
			errs = append(errs, &UnknownDatasetError{Cluster: b.cluster, Metric: b.metric, Dataset: b.dataset})
		}
		if _, ok := r.metrics.Get(b.metric); !ok {
			errs = append(errs, fmt.Errorf("%w: %s (cluster %s)", ErrUnknownMetric, b.metric, b.cluster))
		}
	}
	for _, c := range r.charts {
		if _, ok := r.chartReg.Get(c.chartType); !ok {
			errs = append(errs, fmt.Errorf("%w: %s (cluster %s)", ErrUnknownChart, c.chartType, c.cluster))
		}
	}
	return errors.Join(errs...)
}

// Clusters returns the cluster names in first-registration order, metrics
// first, then charts.
func (r *Report) Clusters() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, b := range r.bindings {
		add(b.cluster)
	}
	for _, c := range r.charts {
		add(c.cluster)
	}
	return out
}

// ToJSON returns the result as JSON-safe trees: metrics through Normalize,
// charts through Figures.
func (res *Result) ToJSON() map[string]any {
	metrics := make(map[string]any, len(res.Metrics))
	for cluster, values := range res.Metrics {
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		metrics[cluster] = list
	}
	normMetrics, _ := serialize.Normalize(metrics)

	charts := make(map[string]any, len(res.Charts))
	for cluster, fig := range res.Charts {
		charts[cluster] = fig
	}

	scores := make(map[string]any, len(res.Scores))
	for k, v := range res.Scores {
		scores[k] = v
	}

	out := map[string]any{
		"metrics": normMetrics,
		"charts":  serialize.Figures(charts),
		"scores":  scores,
	}
	if len(res.Failures) > 0 {
		failures := make([]any, len(res.Failures))
		for i, f := range res.Failures {
			failures[i] = f
		}
		norm, _ := serialize.Normalize(failures)
		out["failures"] = norm
	}
	return out
}
