package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataquality/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	dataRoot    string
	maxFileSize int64
	logLevel    string
	logFormat   string
	format      string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "dqctl",
		Short: "Data-quality reports over CSV datasets",
		Long: "dqctl maps CSV files onto semantic fields, filters them with the\n" +
			"dataset query language and scores them with the report plan.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logs go to stderr so command output stays machine-readable.
			logging.Setup(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dataRoot, "data-root", "", "directory that record payload paths are relative to (default: each CSV's directory)")
	pf.Int64Var(&opts.maxFileSize, "max-file-size", 100<<20, "largest CSV file to read in bytes")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVarP(&opts.format, "format", "o", "table", "output format: table, markdown or json")

	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newFilterCmd(opts))
	root.AddCommand(newTranslateCmd())
	root.AddCommand(newPlanCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
