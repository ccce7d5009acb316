package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tollsimy/rapid/internal/aggregate"
	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/logging"
	"github.com/tollsimy/rapid/internal/logparse"
	"github.com/tollsimy/rapid/internal/reconcile"
	"github.com/tollsimy/rapid/internal/record"
	"github.com/tollsimy/rapid/internal/store"
)

// Harness runs scenarios.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness. A nil logger discards everything.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with a silent harness.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(context.Background(), scenario)
}

// Run executes scenario and evaluates its assertions.
//
// Each run uses a fresh in-memory database. An error is returned only when
// the scenario itself cannot run; failed assertions are reported in the
// result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := h.logger.With("scenario", scenario.Name)

	reg, err := scenario.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build classifiers: %w", err)
	}
	benchmark := strings.ToLower(strings.TrimSpace(scenario.Benchmark))
	initial, ok := reg.Lookup(benchmark)
	if !ok {
		return nil, diag.NewClassifierNotFound(benchmark, reg.Names())
	}

	tok, err := logparse.NewTokenizer(scenario.LogFormat(), reg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build tokenizer: %w", err)
	}
	spec, err := scenario.Document()
	if err != nil {
		return nil, fmt.Errorf("failed to build specification: %w", err)
	}

	result := NewResult()

	blocks, diags := tok.Tokenize(scenario.Log, initial)
	result.Blocks = blocks.Len()

	set, d := reconcile.Reconcile(benchmark, blocks, spec)
	diags.Extend(d)

	doc, err := set.Document(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to merge results: %w", err)
	}

	// Validate what was written, not what was built.
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}
	written, err := record.ParseDocument(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to re-read results: %w", err)
	}
	diags.Extend(reconcile.Validate(spec, written))
	result.Document = written

	records, err := roundTrip(ctx, benchmark, scenario.Name, set.Records())
	if err != nil {
		return nil, err
	}
	result.Records = records

	result.Counts = aggregate.Compute(benchmark, records)
	diags.Extend(result.Counts.Warnings)
	result.Diagnostics = diags

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	logger.Debug("scenario finished",
		"blocks", result.Blocks,
		"tests", len(result.Records),
		"diagnostics", len(result.Diagnostics),
		"pass", result.Pass,
	)
	return result, nil
}

// roundTrip imports records into an in-memory store and reads them back.
func roundTrip(ctx context.Context, benchmark, source string, records []record.TestRecord) ([]record.TestRecord, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if _, err := st.ImportRecords(ctx, benchmark, source, records); err != nil {
		return nil, fmt.Errorf("failed to import records: %w", err)
	}
	out, err := st.ReadRecords(ctx, benchmark)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}
