package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/diag"
)

// ClassifiersOptions holds flags for the classifiers command.
type ClassifiersOptions struct {
	*RootOptions
	Classifiers ClassifierFlags
	Detect      string
}

// ClassifierInfo describes one registered classifier.
type ClassifierInfo struct {
	Name    string `json:"name"`
	Builtin bool   `json:"builtin"`
}

// ClassifiersResult lists the registered classifiers.
type ClassifiersResult struct {
	Classifiers []ClassifierInfo `json:"classifiers"`
	Diagnostics diag.List        `json:"diagnostics,omitempty"`

	// Detected is the classifier chosen for --detect.
	Detected string `json:"detected,omitempty"`
}

// NewClassifiersCommand creates the classifiers command.
func NewClassifiersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassifiersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classifiers",
		Short: "List registered classifiers",
		Long: `Load the selected classifiers and list the ones that registered. Rejected
definitions are reported with their reason.

With --detect, print the classifier that would be chosen for a
specification file name.

Examples:
  rapid classifiers --classifier-dir classifiers/
  rapid classifiers --classifier-dir classifiers/ --detect inject/matmul_bitflips.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassifiers(opts, cmd)
		},
	}

	opts.Classifiers.bind(cmd.Flags())
	cmd.Flags().StringVar(&opts.Detect, "detect", "", "specification file to detect the classifier of")

	return cmd
}

func runClassifiers(opts *ClassifiersOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reg, diags := opts.Classifiers.Registry(opts.logger())
	result := ClassifiersResult{Diagnostics: diags}
	for _, name := range reg.Names() {
		_, builtin := classifier.Builtin(name)
		result.Classifiers = append(result.Classifiers, ClassifierInfo{Name: name, Builtin: builtin})
	}

	if opts.Detect != "" {
		c, err := reg.Detect(opts.Detect)
		if err != nil {
			return f.fail(ExitFailure, ErrorCode(err), "detection failed", err)
		}
		result.Detected = c.Name()
	}

	if f.JSON() {
		return f.Success(result)
	}
	writeClassifiersText(f.Writer, result)
	return nil
}

func writeClassifiersText(w io.Writer, result ClassifiersResult) {
	for _, c := range result.Classifiers {
		if c.Builtin {
			fmt.Fprintf(w, "✓ %s (builtin)\n", c.Name)
			continue
		}
		fmt.Fprintf(w, "✓ %s\n", c.Name)
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(w, "✗ %s\n", d)
	}
	if result.Detected != "" {
		fmt.Fprintf(w, "\nDetected: %s\n", result.Detected)
	}
}
