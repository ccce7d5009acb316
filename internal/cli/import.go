package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/pipeline"
	"github.com/tollsimy/rapid/internal/store"
)

// DefaultDatabase is the database path used when --db is not given.
const DefaultDatabase = "fault_analysis.db"

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database    string
	ResultsFile string
	ResultsDir  string
	CreateDB    bool
}

// FileImport is the outcome of importing one result file.
type FileImport struct {
	File        string    `json:"file"`
	BatchID     string    `json:"batch_id,omitempty"`
	Benchmark   string    `json:"benchmark,omitempty"`
	Records     int       `json:"records"`
	Diagnostics diag.List `json:"diagnostics,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ImportResult holds the overall import result.
type ImportResult struct {
	Database string       `json:"database"`
	Files    []FileImport `json:"files"`
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import result files into the database",
		Long: `Import *_results.json files into a SQLite database. The benchmark of each
file is its base name up to the first underscore. Re-importing a test
replaces the stored one.

Exit codes:
  0 - At least one file imported
  1 - Nothing imported
  2 - Command error (missing file or directory, database error)

Examples:
  rapid import --results-dir results/
  rapid import --db campaign.db --results-file results/matmul_bitflips_results.json --create-db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	cmd.Flags().StringVar(&opts.ResultsFile, "results-file", "", "single result file to import")
	cmd.Flags().StringVar(&opts.ResultsDir, "results-dir", "results", "directory of result files")
	cmd.Flags().BoolVar(&opts.CreateDB, "create-db", false, "recreate the database before importing")

	return cmd
}

// resultFiles resolves the files to import.
func (o *ImportOptions) resultFiles() ([]string, error) {
	if o.ResultsFile != "" {
		if _, err := os.Stat(o.ResultsFile); err != nil {
			return nil, fmt.Errorf("results file not found: %s", o.ResultsFile)
		}
		return []string{o.ResultsFile}, nil
	}
	if info, err := os.Stat(o.ResultsDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("results directory not found: %s", o.ResultsDir)
	}
	return pipeline.ListFiles(o.ResultsDir, pipeline.ResultSuffix)
}

func runImport(opts *ImportOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := opts.resultFiles()
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	if len(files) == 0 {
		return f.fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no result files found in %s", opts.ResultsDir), nil)
	}

	st, err := openStore(cmd.Context(), opts.Database, opts.CreateDB, opts.logger())
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer closeStore(st, opts.logger())

	result := importFiles(cmd.Context(), st, files, opts.logger())
	result.Database = opts.Database

	if result.Imported == 0 {
		msg := "no file imported"
		if f.JSON() {
			if err := f.Partial(result, ErrCodeDatabase, msg); err != nil {
				return err
			}
		} else {
			writeImportText(f.Writer, result)
		}
		return NewExitError(ExitFailure, msg)
	}

	if f.JSON() {
		return f.Success(result)
	}
	writeImportText(f.Writer, result)
	return nil
}

// openStore opens the database, recreating it when reset is set.
func openStore(ctx context.Context, path string, reset bool, logger *slog.Logger) (*store.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if reset {
		logger.Info("recreating database", "path", path)
		if err := st.Reset(ctx); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

// importFiles imports each file in turn. A failing file is recorded and the
// remaining files still run.
func importFiles(ctx context.Context, st *store.Store, files []string, logger *slog.Logger) ImportResult {
	if ctx == nil {
		ctx = context.Background()
	}
	result := ImportResult{Files: make([]FileImport, 0, len(files))}
	for _, file := range files {
		imp, diags, err := st.ImportFile(ctx, file)
		diags.Log(logger)
		if err != nil {
			logger.Error("import failed", "file", file, "error", err)
			result.Files = append(result.Files, FileImport{File: file, Diagnostics: diags, Error: err.Error()})
			result.Failed++
			continue
		}
		logger.Info("imported", "file", file, "benchmark", imp.Benchmark, "records", imp.Records, "batch", imp.BatchID)
		result.Files = append(result.Files, FileImport{
			File:        file,
			BatchID:     imp.BatchID,
			Benchmark:   imp.Benchmark,
			Records:     imp.Records,
			Diagnostics: diags,
		})
		result.Imported++
	}
	return result
}

func writeImportText(w io.Writer, result ImportResult) {
	for _, fi := range result.Files {
		if fi.Error != "" {
			fmt.Fprintf(w, "✗ %s\n", fi.File)
			fmt.Fprintf(w, "  Error: %s\n", fi.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s -> %s (%d records)\n", fi.File, fi.Benchmark, fi.Records)
	}
	fmt.Fprintf(w, "\nImport complete. Imported %d of %d files into %s.\n",
		result.Imported, len(result.Files), result.Database)
}
