package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tollsimy/rapid/internal/report"
)

// PipelineOptions holds flags for the pipeline command.
type PipelineOptions struct {
	*RootOptions
	Parse ParseOptions

	Database string
	CreateDB bool
	NoColor  bool
}

// PipelineResult holds the outcome of every stage.
type PipelineResult struct {
	Parse    ParseResult         `json:"parse"`
	Import   ImportResult        `json:"import"`
	Analysis []BenchmarkAnalysis `json:"analysis"`
}

// NewPipelineCommand creates the pipeline command.
func NewPipelineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PipelineOptions{RootOptions: rootOpts}
	opts.Parse.RootOptions = rootOpts

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Parse, import and analyze in one run",
		Long: `Run parse over the given logs, import the result files it wrote and
analyze every benchmark that was imported.

Exit codes:
  0 - Every stage succeeded
  1 - A pair or a result file failed, or nothing was processed
  2 - Command error (invalid flags, missing log format, database error)

Examples:
  rapid pipeline --log-dir logs/ --inject-dir inject/ --log-format format.yaml --create-db
  rapid pipeline --log-file tests.txt --inject-file inject/crc_bitflips.json -f format.yaml --db crc.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	opts.Parse.bind(cmd)
	cmd.Flags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	cmd.Flags().BoolVar(&opts.CreateDB, "create-db", false, "recreate the database before importing")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colored tables")

	return cmd
}

func runPipeline(opts *PipelineOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	batch, err := parseBatch(&opts.Parse, f)
	if err != nil {
		return err
	}
	result := PipelineResult{Parse: newParseResult(batch)}

	files := make([]string, 0, len(batch.Results))
	for _, r := range batch.Results {
		files = append(files, r.ResultsFile)
	}
	if len(files) == 0 {
		return pipelineFailure(f, result, "no pair processed", opts.NoColor)
	}

	st, err := openStore(ctx, opts.Database, opts.CreateDB, logger)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer closeStore(st, logger)

	result.Import = importFiles(ctx, st, files, logger)
	result.Import.Database = opts.Database

	result.Analysis, err = analyzeBenchmarks(ctx, st, importedBenchmarks(result.Import), "")
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "failed to analyze", err)
	}

	if result.Parse.Failed > 0 || result.Import.Failed > 0 {
		msg := fmt.Sprintf("%d pair(s) and %d result file(s) failed", result.Parse.Failed, result.Import.Failed)
		return pipelineFailure(f, result, msg, opts.NoColor)
	}

	if f.JSON() {
		return f.Success(result)
	}
	return writePipelineText(f, result, opts.NoColor)
}

// importedBenchmarks returns the distinct benchmarks of the imported files,
// sorted.
func importedBenchmarks(imp ImportResult) []string {
	seen := make(map[string]bool)
	var names []string
	for _, fi := range imp.Files {
		if fi.Error != "" || seen[fi.Benchmark] {
			continue
		}
		seen[fi.Benchmark] = true
		names = append(names, fi.Benchmark)
	}
	sort.Strings(names)
	return names
}

func pipelineFailure(f *OutputFormatter, result PipelineResult, msg string, noColor bool) error {
	if f.JSON() {
		if err := f.Partial(result, ErrCodeGeneric, msg); err != nil {
			return err
		}
	} else if err := writePipelineText(f, result, noColor); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func writePipelineText(f *OutputFormatter, result PipelineResult, noColor bool) error {
	fmt.Fprintln(f.Writer, "Step 1: Parsing logs")
	writeParseText(f.Writer, result.Parse)
	if len(result.Import.Files) == 0 {
		return nil
	}

	fmt.Fprintln(f.Writer, "\nStep 2: Importing results")
	writeImportText(f.Writer, result.Import)

	fmt.Fprintln(f.Writer, "\nStep 3: Analyzing benchmarks")
	return writeAnalyzeText(f.Writer, AnalyzeResult{
		Database:   result.Import.Database,
		Benchmarks: result.Analysis,
	}, report.Options{NoColor: noColor})
}
