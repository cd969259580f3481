package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root cobra command for the strmap CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strmap",
		Short: "strmap - exercise the strmap hash table",
		Long: `strmap drives the strmap in-process hash table through its sample scenario.

Use subcommands to perform different operations:
  - check: populate, verify, iterate and drain a table
  - bench-compare: compare two benchmark history files
  - version: print build information`,
		Version:       Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewBenchCompareCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
