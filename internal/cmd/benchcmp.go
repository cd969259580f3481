package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/theflywheel/strmap/internal/benchcmp"
	"go.uber.org/multierr"
)

// NewBenchCompareCmd creates the bench-compare subcommand.
func NewBenchCompareCmd() *cobra.Command {
	var (
		threshold float64
		out       string
	)

	cmd := &cobra.Command{
		Use:   "bench-compare <base.json> <current.json>",
		Short: "Compare two benchmark history files",
		Long: `Compare benchmark results written to benchmark_history/ by the bench
package. Benchmarks are matched by name; a metric that moved the wrong way by
at least --threshold percent marks its benchmark as a regression, and the
command fails when any regression is found.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := benchcmp.Load(args[0])
			if err != nil {
				return err
			}
			current, err := benchcmp.Load(args[1])
			if err != nil {
				return err
			}

			report := benchcmp.Compare(base, current, threshold)
			benchcmp.WriteText(cmd.OutOrStdout(), report)

			if out != "" {
				if err := writeReport(out, report); err != nil {
					return err
				}
			}
			if report.Regressed > 0 {
				return fmt.Errorf("%d benchmarks regressed", report.Regressed)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", benchcmp.DefaultThreshold, "Percent change that counts as significant")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Also write the comparison as JSON to this file")
	return cmd
}

func writeReport(path string, report benchcmp.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return benchcmp.WriteJSON(f, report)
}
