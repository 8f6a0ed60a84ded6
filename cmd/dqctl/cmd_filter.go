package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

func newFilterCmd(g *globalOptions) *cobra.Command {
	var (
		mapping string
		limit   int
		count   bool
	)

	cmd := &cobra.Command{
		Use:   "filter <file.csv> <query>",
		Short: "Print the rows of a CSV file that match a query",
		Long: "The query may use raw column names, or semantic field names when\n" +
			"--mapping is given. AND/OR, [brackets] and '== null' are accepted.",
		Example: `  dqctl filter patients.csv 'patient_age > 18 AND sex == "F"'
  dqctl filter patients.csv 'age == null' --mapping '{"age":"patient_age"}' --count`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(g.format); err != nil {
				return err
			}
			m, err := parseMapping(mapping)
			if err != nil {
				return err
			}

			name := datasetName(args[0])
			req := loadRequest{
				paths:    args[:1],
				queries:  map[string]string{name: args[1]},
				dataRoot: g.dataRoot,
				maxSize:  g.maxFileSize,
			}
			if m != nil {
				req.mappings = map[string]dataset.FieldMapping{name: m}
			}
			datasets, err := loadDatasets(cmd.Context(), req)
			if err != nil {
				return err
			}
			frame := datasets[0].Frame()

			if count {
				fmt.Fprintln(cmd.OutOrStdout(), frame.Len())
				return nil
			}
			if limit > 0 {
				frame = frame.Head(limit)
			}
			if g.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), frame.Rows)
			}
			printFrame(cmd, frame, g.format)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&mapping, "mapping", "", `field mapping as {"field":"column"}`)
	f.IntVar(&limit, "limit", 0, "print at most this many rows (0 prints all)")
	f.BoolVar(&count, "count", false, "print only the number of matching rows")
	return cmd
}

func printFrame(cmd *cobra.Command, frame *tabular.Frame, format string) {
	tw := newTable(format, "")
	header := make(table.Row, len(frame.Columns))
	for i, c := range frame.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, row := range frame.Rows {
		r := make(table.Row, len(frame.Columns))
		for i, c := range frame.Columns {
			r[i] = cell(row[c])
		}
		tw.AppendRow(r)
	}
	render(cmd.OutOrStdout(), tw, format)
}
