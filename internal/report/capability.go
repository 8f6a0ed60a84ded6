package report

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/serialize"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

// Config is the per-binding configuration handed to a capability.
type Config map[string]any

// String returns a string option, or def when the key is absent or not text.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Float returns a numeric option. Integers and numeric strings are accepted.
func (c Config) Float(key string, def float64) float64 {
	if f, ok := tabular.Float(c[key]); ok {
		return f
	}
	return def
}

// Int returns an integer option.
func (c Config) Int(key string, def int) int {
	if f, ok := tabular.Float(c[key]); ok {
		return int(f)
	}
	return def
}

// List returns a list option, or nil when absent.
func (c Config) List(key string) []any {
	switch v := c[key].(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out
	}
	return nil
}

// Required returns the string option key or an error naming it.
func (c Config) Required(key string) (string, error) {
	v := c.String(key, "")
	if v == "" {
		return "", fmt.Errorf("missing config option %q", key)
	}
	return v, nil
}

// Clone returns a shallow copy.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// MetricValue is the result of one metric computation.
type MetricValue struct {
	// Metric and Dataset are filled in by the report.
	Metric  string
	Dataset string

	Value       float64
	Dimension   string
	Description string
}

// AsMap returns the serializable fields.
func (m MetricValue) AsMap() map[string]any {
	return map[string]any{
		"metric":      m.Metric,
		"dataset":     m.Dataset,
		"value":       m.Value,
		"dimension":   m.Dimension,
		"description": m.Description,
	}
}

// Metric computes one value over a dataset.
type Metric interface {
	Compute(ctx context.Context, ds *dataset.Dataset, cfg Config) (MetricValue, error)
}

// Chart renders a figure over every dataset in the report.
type Chart interface {
	Render(ctx context.Context, datasets []*dataset.Dataset, cfg Config) (serialize.PortableFigure, error)
}

// MetricFunc adapts a function to Metric.
type MetricFunc func(ctx context.Context, ds *dataset.Dataset, cfg Config) (MetricValue, error)

func (f MetricFunc) Compute(ctx context.Context, ds *dataset.Dataset, cfg Config) (MetricValue, error) {
	return f(ctx, ds, cfg)
}

// ChartFunc adapts a function to Chart.
type ChartFunc func(ctx context.Context, datasets []*dataset.Dataset, cfg Config) (serialize.PortableFigure, error)

func (f ChartFunc) Render(ctx context.Context, datasets []*dataset.Dataset, cfg Config) (serialize.PortableFigure, error) {
	return f(ctx, datasets, cfg)
}
