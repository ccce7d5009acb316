// Package logparse slices a multi-test log stream into per-test blocks.
//
// A log is a sequence of blocks, each introduced by a marker line:
//
//	Starting test inject/matmul/matmul_12 -n 4
//	...output lines...
//	Starting test inject/matmul/matmul_13
//	...
//
// The first line of each block names the test (test-number pattern) and may
// name a different benchmark (benchmark pattern), which switches the active
// classifier for that block and all later ones.
package logparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tollsimy/rapid/internal/config"
)

// Placeholders accepted by TestNameFormat.
const (
	PlaceholderBenchmark  = "{benchmark_type}"
	PlaceholderTestNumber = "{test_num}"
)

// Format configures the tokenizer.
type Format struct {
	// Marker starts every test block.
	Marker string `yaml:"marker"`

	// TestNumberPattern is matched against a block's first line. Group 1 is
	// the test number (reduced to its digits); optional group 2 is the args.
	TestNumberPattern string `yaml:"test_number_pattern"`

	// BenchmarkPattern is optional. Group 1 names the benchmark of the block.
	BenchmarkPattern string `yaml:"benchmark_pattern,omitempty"`

	// TestNameFormat builds the test name from the placeholders.
	TestNameFormat string `yaml:"test_name_format"`
}

// DefaultFormat returns the reference log format.
func DefaultFormat() Format {
	return Format{
		Marker:            "Starting test",
		TestNumberPattern: `_([0-9A-Za-z]+)(?:\s+(.*))?`,
		BenchmarkPattern:  `inject/([a-zA-Z0-9_]+)/([a-zA-Z0-9_]+)_(\d+)`,
		TestNameFormat:    PlaceholderBenchmark + "_" + PlaceholderTestNumber,
	}
}

// LoadFormat reads a format file (YAML, JSON or CUE) and validates it.
func LoadFormat(path string) (Format, error) {
	var f Format
	if err := config.DecodeFile(path, &f); err != nil {
		return Format{}, err
	}
	if err := f.Validate(); err != nil {
		return Format{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks that every pattern compiles and carries the groups the
// tokenizer reads.
func (f Format) Validate() error {
	_, _, err := f.compile()
	return err
}

func (f Format) compile() (testNumber, benchmark *regexp.Regexp, err error) {
	if f.Marker == "" {
		return nil, nil, fmt.Errorf("marker is required")
	}
	if f.TestNumberPattern == "" {
		return nil, nil, fmt.Errorf("test_number_pattern is required")
	}
	testNumber, err = regexp.Compile(f.TestNumberPattern)
	if err != nil {
		return nil, nil, fmt.Errorf("test_number_pattern: %w", err)
	}
	if testNumber.NumSubexp() < 1 {
		return nil, nil, fmt.Errorf("test_number_pattern must have a capture group")
	}
	if f.BenchmarkPattern != "" {
		benchmark, err = regexp.Compile(f.BenchmarkPattern)
		if err != nil {
			return nil, nil, fmt.Errorf("benchmark_pattern: %w", err)
		}
		if benchmark.NumSubexp() < 1 {
			return nil, nil, fmt.Errorf("benchmark_pattern must have a capture group")
		}
	}
	if !strings.Contains(f.TestNameFormat, PlaceholderTestNumber) {
		return nil, nil, fmt.Errorf("test_name_format must contain %s", PlaceholderTestNumber)
	}
	return testNumber, benchmark, nil
}

// TestName synthesizes a test name.
func (f Format) TestName(benchmark, testNumber string) string {
	return strings.NewReplacer(
		PlaceholderBenchmark, benchmark,
		PlaceholderTestNumber, testNumber,
	).Replace(f.TestNameFormat)
}
