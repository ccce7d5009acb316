package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/logparse"
	"github.com/tollsimy/rapid/internal/pipeline"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Classifiers ClassifierFlags

	LogFile    string
	SpecFile   string
	LogDir     string
	SpecDir    string
	LogFormat  string
	ResultsDir string
}

// PairReport is the outcome of one (log, specification) pair.
type PairReport struct {
	Log         string    `json:"log"`
	Spec        string    `json:"spec"`
	Benchmark   string    `json:"benchmark,omitempty"`
	ResultsFile string    `json:"results_file,omitempty"`
	Tests       int       `json:"tests"`
	Blocks      int       `json:"blocks"`
	Diagnostics diag.List `json:"diagnostics,omitempty"`
	ErrorCode   string    `json:"error_code,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ParseResult holds the overall parse result.
type ParseResult struct {
	Pairs     []PairReport `json:"pairs"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Classify logs against their specifications",
		Long: `Split benchmark logs into per-test blocks, classify each block and merge
the outcome into the specification, writing <spec>_results.json.

Either a single pair (--log-file with --inject-file) or two directories
(--log-dir with --inject-dir) are processed. In directory mode every *.txt
log is paired with the *.json specification whose name shares the most of
its underscore-separated parts.

Exit codes:
  0 - All pairs processed
  1 - One or more pairs failed
  2 - Command error (invalid flags, missing log format, etc.)

Examples:
  rapid parse --log-file tests.txt --inject-file inject/matmul_bitflips.json --log-format format.yaml
  rapid parse --log-dir logs/ --inject-dir inject/ --log-format format.cue --classifier-dir classifiers/`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, cmd)
		},
	}

	opts.bind(cmd)
	return cmd
}

func (o *ParseOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.LogFile, "log-file", "", "single log file to parse")
	flags.StringVar(&o.SpecFile, "inject-file", "", "specification file of --log-file")
	flags.StringVar(&o.LogDir, "log-dir", "", "directory of *.txt log files")
	flags.StringVar(&o.SpecDir, "inject-dir", "", "directory of *.json specification files")
	flags.StringVarP(&o.LogFormat, "log-format", "f", "", "log format file (YAML, JSON or CUE)")
	flags.StringVar(&o.ResultsDir, "results-dir", "results", "directory for result files")
	o.Classifiers.bind(flags)
}

// pairs resolves the input flags into the pairs to process.
func (o *ParseOptions) pairs() ([]pipeline.Pair, error) {
	single := o.LogFile != "" || o.SpecFile != ""
	dirs := o.LogDir != "" || o.SpecDir != ""

	switch {
	case single && dirs:
		return nil, fmt.Errorf("use either --log-file/--inject-file or --log-dir/--inject-dir, not both")
	case single:
		if o.LogFile == "" || o.SpecFile == "" {
			return nil, fmt.Errorf("--log-file and --inject-file must be given together")
		}
		for _, path := range []string{o.LogFile, o.SpecFile} {
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("file not found: %s", path)
			}
		}
		return []pipeline.Pair{{Log: o.LogFile, Spec: o.SpecFile}}, nil
	case dirs:
		if o.LogDir == "" || o.SpecDir == "" {
			return nil, fmt.Errorf("--log-dir and --inject-dir must be given together")
		}
		return pipeline.FindPairs(o.LogDir, o.SpecDir)
	default:
		return nil, fmt.Errorf("must specify either --log-file and --inject-file or --log-dir and --inject-dir")
	}
}

func runParse(opts *ParseOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	batch, err := parseBatch(opts, f)
	if err != nil {
		return err
	}
	result := newParseResult(batch)

	if result.Failed > 0 {
		msg := fmt.Sprintf("%d of %d pair(s) failed", result.Failed, len(result.Pairs))
		if f.JSON() {
			if err := f.Partial(result, ErrCodeGeneric, msg); err != nil {
				return err
			}
		} else {
			writeParseText(f.Writer, result)
		}
		return NewExitError(ExitFailure, msg)
	}

	if f.JSON() {
		return f.Success(result)
	}
	writeParseText(f.Writer, result)
	return nil
}

// parseBatch validates the parse flags and runs every pair. Setup problems
// are reported through f and returned as ExitErrors.
func parseBatch(opts *ParseOptions, f *OutputFormatter) (*pipeline.Batch, error) {
	logger := opts.logger()

	pairs, err := opts.pairs()
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeInvalidFlags, err.Error(), nil)
	}
	if opts.LogFormat == "" {
		return nil, f.fail(ExitCommandError, ErrCodeInvalidFlags, "must specify --log-format with log patterns", nil)
	}
	format, err := logparse.LoadFormat(opts.LogFormat)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeLogFormat, "failed to load log format", err)
	}

	reg, diags := opts.Classifiers.Registry(logger)
	for _, d := range diags {
		f.VerboseLog("classifier: %s", d)
	}
	if reg.Len() == 0 {
		return nil, f.fail(ExitCommandError, ErrCodeInvalidClassifier, "no classifier could be registered", nil)
	}

	p, err := pipeline.New(reg, format, opts.ResultsDir, logger)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeLogFormat, "invalid log format", err)
	}

	f.VerboseLog("processing %d pair(s) with classifiers %v", len(pairs), reg.Names())
	return p.RunBatch(pairs), nil
}

func newParseResult(batch *pipeline.Batch) ParseResult {
	result := ParseResult{Pairs: make([]PairReport, 0, len(batch.Results)+len(batch.Failures))}
	for _, r := range batch.Results {
		result.Pairs = append(result.Pairs, PairReport{
			Log:         r.Pair.Log,
			Spec:        r.Pair.Spec,
			Benchmark:   r.Benchmark,
			ResultsFile: r.ResultsFile,
			Tests:       r.Set.Len(),
			Blocks:      r.Blocks,
			Diagnostics: r.Diagnostics,
		})
		result.Processed++
	}
	for _, fail := range batch.Failures {
		result.Pairs = append(result.Pairs, PairReport{
			Log:       fail.Pair.Log,
			Spec:      fail.Pair.Spec,
			ErrorCode: ErrorCode(fail.Err),
			Error:     fail.Err.Error(),
		})
		result.Failed++
	}
	return result
}

func writeParseText(w io.Writer, result ParseResult) {
	for _, p := range result.Pairs {
		if p.Error != "" {
			fmt.Fprintf(w, "✗ %s\n", p.Log)
			fmt.Fprintf(w, "  Error [%s]: %s\n", p.ErrorCode, p.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s -> %s (%d tests, %d blocks, %d diagnostics)\n",
			p.Log, p.ResultsFile, p.Tests, p.Blocks, len(p.Diagnostics))
	}
	fmt.Fprintf(w, "\nParse Summary: %d processed, %d failed, %d total\n",
		result.Processed, result.Failed, len(result.Pairs))
}
