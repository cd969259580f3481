package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/theflywheel/strmap"
	"github.com/theflywheel/strmap/internal/check"
	"go.uber.org/multierr"
)

// NewCheckCmd creates and returns the check subcommand.
func NewCheckCmd() *cobra.Command {
	var (
		cfg       = check.DefaultConfig()
		keys      string
		hasher    string
		logLevel  string
		logFile   string
		tableOpts = strmap.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Populate, verify, iterate and drain a table",
		Long: `Run the strmap sample scenario.

One record is allocated per key and stored in a fresh table. Every key is
then looked up and compared, a key that was never inserted must be missing,
an iteration must find the record for index 100 exactly once, the length must
match, and finally every key is removed and must be missing afterwards.

Keys are "<prefix><index>" by default, or random UUIDs with --keys uuid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Keys = check.KeyMode(keys)
			h, err := strmap.HasherByName(hasher)
			if err != nil {
				return err
			}
			tableOpts.Hasher = h
			tableOpts.Logger = nil
			cfg.Table = tableOpts

			log, closeLog, err := newLogger(logLevel, logFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			report, runErr := check.Run(cmd.Context(), cfg, log)
			printReport(cmd.OutOrStdout(), cfg, report, runErr)
			return multierr.Append(runErr, closeLog())
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.Count, "count", "n", cfg.Count, "Number of keys to insert")
	flags.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "Key prefix for sequential keys")
	flags.StringVar(&keys, "keys", string(check.KeysSequential), "Key generation: sequential or uuid")
	flags.StringVar(&hasher, "hash", "xxhash", "Hash function: "+strings.Join(strmap.HasherNames(), ", "))
	flags.IntVar(&tableOpts.InitialCapacity, "initial-capacity", tableOpts.InitialCapacity, "Initial number of slots")
	flags.Float64Var(&tableOpts.LoadFactor, "load-factor", tableOpts.LoadFactor, "Maximum (live + deleted) / capacity before a rebuild")
	flags.IntVar(&tableOpts.GrowthFactor, "growth-factor", tableOpts.GrowthFactor, "Capacity multiplier on growth")
	flags.IntVar(&tableOpts.MaxCapacity, "max-capacity", 0, "Largest capacity the table may grow to (0 for no limit)")
	flags.IntVar(&tableOpts.MaxKeyLength, "max-key-length", tableOpts.MaxKeyLength, "Longest accepted key in bytes")
	flags.DurationVar(&cfg.ProgressInterval, "progress", 0, "Log progress at this interval (0 disables)")
	flags.IntVar(&cfg.MaxFailures, "max-failures", cfg.MaxFailures, "Verification failures collected before giving up")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "Write JSON logs to this file, rotated by size")

	return cmd
}

func printReport(w io.Writer, cfg check.Config, report check.Report, err error) {
	for _, p := range report.Phases {
		fmt.Fprintf(w, "==> %-8s %12v\n", p.Name, p.Elapsed.Round(time.Microsecond))
	}
	fmt.Fprintf(w, "keys: %d, capacity: %d, rebuilds: %d, visited: %d, sentinel found: %d\n",
		report.Count, report.Capacity, report.Rebuilds, report.Visited, report.SentinelFound)

	if err != nil {
		fmt.Fprintf(w, "FAILED (%d keys, %s keys)\n", cfg.Count, cfg.Keys)
		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(w, "  %v\n", e)
		}
		return
	}
	fmt.Fprintf(w, "OK (%d keys, %s keys)\n", cfg.Count, cfg.Keys)
}
