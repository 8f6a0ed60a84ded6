package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataquality/internal/report"
)

func newPlanCmd(g *globalOptions) *cobra.Command {
	var (
		planFile     string
		capabilities bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the report plan, or the registered metrics and charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if capabilities {
				if err := checkFormat(g.format); err != nil {
					return err
				}
				if g.format == formatJSON {
					return writeJSON(w, map[string]any{
						"metrics": report.Metrics.Names(),
						"charts":  report.Charts.Names(),
					})
				}
				tw := newTable(g.format, "Capabilities")
				tw.AppendHeader(table.Row{"Kind", "Name"})
				for _, name := range report.Metrics.Names() {
					tw.AppendRow(table.Row{"metric", name})
				}
				for _, name := range report.Charts.Names() {
					tw.AppendRow(table.Row{"chart", name})
				}
				render(w, tw, g.format)
				return nil
			}

			plan := report.DefaultPlan()
			if planFile != "" {
				var err error
				if plan, err = report.LoadPlan(planFile); err != nil {
					return err
				}
			}
			if g.format == formatJSON {
				return encodeJSON(w, plan)
			}
			out, err := plan.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprint(w, string(out))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&planFile, "plan", "", "YAML or JSON report plan to validate and print")
	f.BoolVar(&capabilities, "capabilities", false, "list registered metric and chart names")
	return cmd
}
