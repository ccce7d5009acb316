package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tollsimy/rapid/internal/store"
)

// BenchmarksOptions holds flags for the benchmarks command.
type BenchmarksOptions struct {
	*RootOptions
	Database string
	Imports  bool
}

// BenchmarksResult lists the stored benchmarks and, on request, the import
// history.
type BenchmarksResult struct {
	Database   string                `json:"database"`
	Benchmarks []store.BenchmarkStat `json:"benchmarks"`
	Imports    []store.Import        `json:"imports,omitempty"`
}

// NewBenchmarksCommand creates the benchmarks command.
func NewBenchmarksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchmarksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "benchmarks",
		Short: "List stored benchmarks",
		Long: `List the benchmarks stored in a database with their test counts.

Examples:
  rapid benchmarks --db fault_analysis.db
  rapid benchmarks --imports --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	cmd.Flags().BoolVar(&opts.Imports, "imports", false, "also list import batches")

	return cmd
}

func runBenchmarks(opts *BenchmarksOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(opts.Database); err != nil {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database file not found: %s", opts.Database), nil)
	}
	st, err := openStore(cmd.Context(), opts.Database, false, opts.logger())
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer closeStore(st, opts.logger())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := BenchmarksResult{Database: opts.Database}
	if result.Benchmarks, err = st.BenchmarkStats(ctx); err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "failed to list benchmarks", err)
	}
	if opts.Imports {
		if result.Imports, err = st.ReadImports(ctx); err != nil {
			return f.fail(ExitCommandError, ErrCodeDatabase, "failed to list imports", err)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	writeBenchmarksText(f.Writer, result)
	return nil
}

func writeBenchmarksText(w io.Writer, result BenchmarksResult) {
	if len(result.Benchmarks) == 0 {
		fmt.Fprintf(w, "No benchmarks found in %s\n", result.Database)
	}
	for _, b := range result.Benchmarks {
		fmt.Fprintf(w, "%-24s %d tests\n", b.Benchmark, b.Tests)
	}
	if len(result.Imports) > 0 {
		fmt.Fprintln(w, "\nImports:")
		for _, imp := range result.Imports {
			fmt.Fprintf(w, "  %s  %s  %-16s %d records  %s\n",
				imp.BatchID, imp.ImportedAt.Format("2006-01-02 15:04:05"), imp.Benchmark, imp.Records, imp.Source)
		}
	}
}
