package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dataquality/internal/dataset"
)

// MetricRule binds a metric to every dataset whose mapping declares all
// Requires fields.
type MetricRule struct {
	Cluster  string   `yaml:"cluster" json:"cluster"`
	Metric   string   `yaml:"metric" json:"metric"`
	Config   Config   `yaml:"config" json:"config"`
	Requires []string `yaml:"requires" json:"requires"`
}

// ChartRule adds a chart when every dataset's mapping declares all Requires
// fields.
type ChartRule struct {
	Cluster  string   `yaml:"cluster" json:"cluster"`
	Chart    string   `yaml:"chart" json:"chart"`
	Config   Config   `yaml:"config" json:"config"`
	Requires []string `yaml:"requires" json:"requires"`
}

// Plan is a declarative list of metric and chart rules.
type Plan struct {
	Metrics []MetricRule `yaml:"metrics" json:"metrics"`
	Charts  []ChartRule  `yaml:"charts" json:"charts"`
}

// DefaultPlan returns the standard data-quality plan: sex diversity, age
// spread and record currency, each with a chart.
func DefaultPlan() Plan {
	return Plan{
		Metrics: []MetricRule{
			{
				Cluster:  "variety_sex",
				Metric:   "HillNumbers",
				Config:   Config{"column": "sex", "q": 2, "types": []any{0, 1}},
				Requires: []string{"sex"},
			},
			{
				Cluster:  "variety_age",
				Metric:   "IQR",
				Config:   Config{"column": "age"},
				Requires: []string{"age"},
			},
			{
				Cluster:  "variety_age",
				Metric:   "Range",
				Config:   Config{"column": "age"},
				Requires: []string{"age"},
			},
			{
				Cluster:  "currency",
				Metric:   "CurrencyHeinrich",
				Config:   Config{"created_at_field": "created_at", "A": 1e-9},
				Requires: []string{"created_at"},
			},
		},
		Charts: []ChartRule{
			{
				Cluster:  "variety_sex",
				Chart:    "categorical_bar_chart",
				Config:   Config{"field": "sex"},
				Requires: []string{"sex"},
			},
			{
				Cluster:  "variety_age",
				Chart:    "continuous_bar_chart",
				Config:   Config{"field": "age"},
				Requires: []string{"age"},
			},
			{
				Cluster:  "currency",
				Chart:    "categorical_bar_chart",
				Config:   Config{"field": "created_at"},
				Requires: []string{"created_at"},
			},
		},
	}
}

// LoadPlan reads a plan from a YAML or JSON file, chosen by extension.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}

	var p Plan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &p)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		return Plan{}, fmt.Errorf("plan %s: unsupported extension (use .yaml, .yml or .json)", path)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that every rule names a cluster and a capability.
func (p Plan) Validate() error {
	for i, m := range p.Metrics {
		if m.Cluster == "" || m.Metric == "" {
			return fmt.Errorf("metric rule %d: cluster and metric are required", i)
		}
	}
	for i, c := range p.Charts {
		if c.Cluster == "" || c.Chart == "" {
			return fmt.Errorf("chart rule %d: cluster and chart are required", i)
		}
	}
	return nil
}

// Apply registers the plan's rules on r. Metric rules are bound per dataset
// in dataset order, and each chart rule is added once when every dataset
// satisfies it.
func (p Plan) Apply(r *Report, datasets []*dataset.Dataset) {
	for _, ds := range datasets {
		for _, rule := range p.Metrics {
			if satisfies(ds, rule.Requires) {
				r.AddMetric(rule.Cluster, rule.Metric, rule.Config, ds.Name())
			}
		}
	}

	for _, rule := range p.Charts {
		all := len(datasets) > 0
		for _, ds := range datasets {
			if !satisfies(ds, rule.Requires) {
				all = false
				break
			}
		}
		if all {
			r.AddChart(rule.Cluster, rule.Chart, rule.Config)
		}
	}
}

// Marshal renders the plan as YAML.
func (p Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func satisfies(ds *dataset.Dataset, fields []string) bool {
	for _, f := range fields {
		if !ds.HasField(f) {
			return false
		}
	}
	return true
}
