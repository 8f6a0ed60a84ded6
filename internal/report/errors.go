package report

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDataset matches a binding that names a dataset the report does not hold.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrUnknownMetric matches a binding whose metric is not registered.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownChart matches a chart spec whose type is not registered.
	ErrUnknownChart = errors.New("unknown chart type")

	// ErrMetricExecution matches any failure raised by a metric or chart.
	ErrMetricExecution = errors.New("metric execution failed")
)

// UnknownDatasetError reports a binding to a dataset the report does not hold.
type UnknownDatasetError struct {
	Cluster string
	Metric  string
	Dataset string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("%s: %s/%s references %q", ErrUnknownDataset, e.Cluster, e.Metric, e.Dataset)
}

func (e *UnknownDatasetError) Is(target error) bool {
	return target == ErrUnknownDataset
}

// MetricError wraps the error a capability returned. Unwrap returns that
// error unmodified.
type MetricError struct {
	Cluster string

	// Name is the metric name or chart type.
	Name string

	// Dataset is empty for charts.
	Dataset string

	Err error
}

func (e *MetricError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("chart %s/%s: %v", e.Cluster, e.Name, e.Err)
	}
	return fmt.Sprintf("metric %s/%s on %s: %v", e.Cluster, e.Name, e.Dataset, e.Err)
}

func (e *MetricError) Unwrap() error { return e.Err }

func (e *MetricError) Is(target error) bool {
	return target == ErrMetricExecution
}

// Failure describes a binding that failed under partial results.
type Failure struct {
	Cluster string `json:"cluster"`
	Name    string `json:"name"`
	Dataset string `json:"dataset,omitempty"`
	Error   string `json:"error"`
}

// AsMap returns the serializable fields.
func (f Failure) AsMap() map[string]any {
	m := map[string]any{"cluster": f.Cluster, "name": f.Name, "error": f.Error}
	if f.Dataset != "" {
		m["dataset"] = f.Dataset
	}
	return m
}

func failureOf(err *MetricError) Failure {
	return Failure{Cluster: err.Cluster, Name: err.Name, Dataset: err.Dataset, Error: err.Err.Error()}
}
