package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataquality/internal/logging"
	"github.com/JonMunkholm/dataquality/internal/report"
	_ "github.com/JonMunkholm/dataquality/internal/report/charts"
	_ "github.com/JonMunkholm/dataquality/internal/report/metrics"
)

type reportOptions struct {
	planFile     string
	reducer      string
	partial      bool
	mappingsFile string
	mappings     []string
	queries      []string
	charts       bool
}

func newReportCmd(g *globalOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report <file.csv>...",
		Short: "Score CSV datasets with the report plan",
		Long: "Each CSV becomes a dataset named after its file. Mappings bind\n" +
			"semantic fields (age, sex, created_at, ...) to columns; metrics run\n" +
			"on every dataset whose mapping declares the fields they need.",
		Example: `  dqctl report patients.csv --mapping 'patients={"age":"patient_age","sex":"sex"}'
  dqctl report a.csv b.csv --mappings mappings.yaml --query 'a=age > 18' -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(g.format); err != nil {
				return err
			}

			plan := report.DefaultPlan()
			if opts.planFile != "" {
				var err error
				if plan, err = report.LoadPlan(opts.planFile); err != nil {
					return err
				}
			}
			reducer, err := report.ReducerByName(opts.reducer)
			if err != nil {
				return err
			}

			mappings, err := loadMappings(opts.mappingsFile, opts.mappings)
			if err != nil {
				return err
			}
			queries, err := parseAssignments("query", opts.queries)
			if err != nil {
				return err
			}

			datasets, err := loadDatasets(cmd.Context(), loadRequest{
				paths:    args,
				mappings: mappings,
				queries:  queries,
				dataRoot: g.dataRoot,
				maxSize:  g.maxFileSize,
			})
			if err != nil {
				return err
			}

			ropts := []report.Option{
				report.WithReducer(reducer),
				report.WithLogger(logging.New("report")),
			}
			if opts.partial {
				ropts = append(ropts, report.WithPartialResults())
			}
			r := report.New(datasets, ropts...)
			plan.Apply(r, datasets)

			res, err := r.Generate(cmd.Context())
			if err != nil {
				return err
			}

			if g.format == formatJSON {
				out := res.ToJSON()
				if !opts.charts {
					delete(out, "charts")
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printResult(cmd.OutOrStdout(), res, g.format)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.planFile, "plan", "", "YAML or JSON report plan (default: built-in plan)")
	f.StringVar(&opts.reducer, "reducer", "mean", "cluster score reducer: mean, min or max")
	f.BoolVar(&opts.partial, "partial", false, "report metric failures next to the surviving results instead of aborting")
	f.StringVar(&opts.mappingsFile, "mappings", "", "YAML or JSON file of dataset name to field mapping")
	f.StringArrayVar(&opts.mappings, "mapping", nil, `dataset mapping as name={"field":"column"} (repeatable)`)
	f.StringArrayVar(&opts.queries, "query", nil, "dataset filter as name=query (repeatable)")
	f.BoolVar(&opts.charts, "charts", false, "include chart figures in JSON output")
	return cmd
}

// printResult renders scores, metric values and failures as tables.
func printResult(w io.Writer, res *report.Result, format string) {
	clusters := make([]string, 0, len(res.Metrics))
	for c := range res.Metrics {
		clusters = append(clusters, c)
	}
	sort.Strings(clusters)

	scores := newTable(format, "Scores")
	scores.AppendHeader(table.Row{"Cluster", "Score"})
	for _, c := range clusters {
		if s, ok := res.Scores[c]; ok {
			scores.AppendRow(table.Row{c, cell(s)})
		} else {
			scores.AppendRow(table.Row{c, "-"})
		}
	}
	rightAlign(scores, 2)
	render(w, scores, format)

	values := newTable(format, "Metrics")
	values.AppendHeader(table.Row{"Cluster", "Metric", "Dataset", "Value", "Dimension"})
	for _, c := range clusters {
		for _, v := range res.Metrics[c] {
			values.AppendRow(table.Row{c, v.Metric, v.Dataset, cell(v.Value), v.Dimension})
		}
	}
	rightAlign(values, 4)
	render(w, values, format)

	if len(res.Charts) > 0 {
		names := make([]string, 0, len(res.Charts))
		for c := range res.Charts {
			names = append(names, c)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "Charts: %v (use -o json --charts for figures)\n\n", names)
	}

	if len(res.Failures) > 0 {
		failures := newTable(format, "Failures")
		failures.AppendHeader(table.Row{"Cluster", "Name", "Dataset", "Error"})
		for _, f := range res.Failures {
			failures.AppendRow(table.Row{f.Cluster, f.Name, f.Dataset, f.Error})
		}
		render(w, failures, format)
	}
}
