package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataquality/internal/query"
)

func newTranslateCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "translate <query>",
		Short: "Print the predicate a query translates to",
		Example: `  dqctl translate 'age > 18 AND sex != null'
  dqctl translate '[age] >' --check`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := query.Translate(args[0])
			if check {
				if _, err := query.Compile(p); err != nil {
					return err
				}
			}
			if p.All() {
				fmt.Fprintln(cmd.OutOrStdout(), "(all rows)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Expr)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "also compile the predicate and report syntax errors")
	return cmd
}
