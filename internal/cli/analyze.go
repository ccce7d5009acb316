package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tollsimy/rapid/internal/aggregate"
	"github.com/tollsimy/rapid/internal/report"
	"github.com/tollsimy/rapid/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Database      string
	Benchmark     string
	AllBenchmarks bool
	Status        string
	NoColor       bool
}

// BenchmarkAnalysis is the aggregate of one stored benchmark.
type BenchmarkAnalysis struct {
	Benchmark string            `json:"benchmark"`
	Counts    *aggregate.Counts `json:"counts"`

	// Matches lists the tests selected by --status.
	Matches []string `json:"matches,omitempty"`
}

// AnalyzeResult holds the overall analysis.
type AnalyzeResult struct {
	Database   string              `json:"database"`
	Status     string              `json:"status,omitempty"`
	Benchmarks []BenchmarkAnalysis `json:"benchmarks"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report outcome statistics of stored benchmarks",
		Long: `Aggregate the stored records of one or all benchmarks and print coverage,
raw counts, class by condition, overlap, strict failure and trap cause
tables. Without --benchmark every stored benchmark is analyzed.

--status lists the tests matching a class (passed, failed, outlier), an
event kind (trap, halt, comm_failure, exec_failure, hw_reset), SDC, clean
or manual.

Examples:
  rapid analyze --benchmark matmul
  rapid analyze --all-benchmarks --no-color
  rapid analyze --benchmark crc --status trap --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, cmd)
		},
	}

	opts.bind(cmd)
	return cmd
}

func (o *AnalyzeOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.Database, "db", DefaultDatabase, "path to SQLite database")
	flags.StringVar(&o.Benchmark, "benchmark", "", "benchmark to analyze")
	flags.BoolVar(&o.AllBenchmarks, "all-benchmarks", false, "analyze every stored benchmark")
	flags.StringVar(&o.Status, "status", "", "list tests matching a class, event kind, SDC, clean or manual")
	flags.BoolVar(&o.NoColor, "no-color", false, "disable colored tables")
}

// validate checks flag combinations before the database is touched.
func (o *AnalyzeOptions) validate() (code string, err error) {
	if o.Benchmark != "" && o.AllBenchmarks {
		return ErrCodeInvalidFlags, fmt.Errorf("use either --benchmark or --all-benchmarks, not both")
	}
	if o.Status != "" {
		if _, err := aggregate.Filter(nil, o.Status); err != nil {
			return ErrCodeUnknownSelector, err
		}
	}
	return "", nil
}

func runAnalyze(opts *AnalyzeOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if code, err := opts.validate(); err != nil {
		return f.fail(ExitCommandError, code, err.Error(), nil)
	}
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

	names, err := selectBenchmarks(ctx, st, opts.Benchmark)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeNoBenchmarks, err.Error(), nil)
	}
	analyses, err := analyzeBenchmarks(ctx, st, names, opts.Status)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "failed to analyze", err)
	}
	for _, a := range analyses {
		f.VerboseLog("%s", report.Summary(a.Counts))
	}

	result := AnalyzeResult{Database: opts.Database, Status: opts.Status, Benchmarks: analyses}
	if f.JSON() {
		return f.Success(result)
	}
	return writeAnalyzeText(f.Writer, result, report.Options{NoColor: opts.NoColor})
}

// selectBenchmarks returns the benchmarks to analyze: only wanted when set,
// every stored benchmark otherwise.
func selectBenchmarks(ctx context.Context, st *store.Store, wanted string) ([]string, error) {
	available, err := st.Benchmarks(ctx)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("no benchmarks found in database")
	}
	if wanted == "" {
		return available, nil
	}
	for _, name := range available {
		if name == wanted {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("benchmark %q not found (available: %s)", wanted, strings.Join(available, ", "))
}

// analyzeBenchmarks reads and aggregates each benchmark. With status set,
// the matching tests are listed as well.
func analyzeBenchmarks(ctx context.Context, st *store.Store, names []string, status string) ([]BenchmarkAnalysis, error) {
	out := make([]BenchmarkAnalysis, 0, len(names))
	for _, name := range names {
		records, err := st.ReadRecords(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s: %w", name, err)
		}
		a := BenchmarkAnalysis{Benchmark: name, Counts: aggregate.Compute(name, records)}
		if status != "" {
			if a.Matches, err = aggregate.Filter(records, status); err != nil {
				return nil, err
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func writeAnalyzeText(w io.Writer, result AnalyzeResult, opts report.Options) error {
	rule := strings.Repeat("=", 60)
	for _, a := range result.Benchmarks {
		fmt.Fprintf(w, "\n%s\nAnalyzing benchmark: %s\n%s\n", rule, a.Benchmark, rule)
		if result.Status != "" {
			fmt.Fprintf(w, "\nTests with status '%s':\n", result.Status)
			for _, id := range a.Matches {
				fmt.Fprintf(w, "  %s\n", id)
			}
			fmt.Fprintf(w, "Found %d tests with '%s' status\n", len(a.Matches), result.Status)
		}
		if err := report.Render(w, a.Counts, opts); err != nil {
			return err
		}
	}

	if len(result.Benchmarks) > 1 {
		all := make([]*aggregate.Counts, 0, len(result.Benchmarks))
		for _, a := range result.Benchmarks {
			all = append(all, a.Counts)
		}
		fmt.Fprintln(w)
		if err := report.RenderComparison(w, all, opts); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nAnalysis complete!")
	return nil
}
