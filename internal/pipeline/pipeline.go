// Package pipeline runs the classification pipeline over one (log,
// specification) pair or a directory batch of them.
//
// Every pair is processed independently: classifier detection, tokenizing,
// reconciliation, writing the result file and validating it as re-read from
// disk. A batch continues past failing pairs.
package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tollsimy/rapid/internal/aggregate"
	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/logparse"
	"github.com/tollsimy/rapid/internal/reconcile"
	"github.com/tollsimy/rapid/internal/record"
)

// ResultSuffix is appended to the specification base name to form the
// result file name.
const ResultSuffix = "_results.json"

// Pair is one log file and the specification it was produced from.
type Pair struct {
	Log  string `json:"log"`
	Spec string `json:"spec"`
}

// Result is the outcome of one processed pair.
type Result struct {
	Pair        Pair              `json:"pair"`
	Benchmark   string            `json:"benchmark"`
	ResultsFile string            `json:"results_file"`
	Blocks      int               `json:"blocks"`
	Set         *reconcile.Set    `json:"-"`
	Counts      *aggregate.Counts `json:"counts"`
	Diagnostics diag.List         `json:"diagnostics"`
}

// Failure is a pair that could not be processed.
type Failure struct {
	Pair Pair  `json:"pair"`
	Err  error `json:"-"`
}

// Batch is the outcome of RunBatch.
type Batch struct {
	Results  []*Result `json:"results"`
	Failures []Failure `json:"failures"`
}

// Pipeline processes pairs with a fixed registry and log format.
type Pipeline struct {
	registry   *classifier.Registry
	tokenizer  *logparse.Tokenizer
	resultsDir string
	logger     *slog.Logger
}

// New builds a pipeline writing result files into resultsDir.
func New(registry *classifier.Registry, format logparse.Format, resultsDir string, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tok, err := logparse.NewTokenizer(format, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &Pipeline{
		registry:   registry,
		tokenizer:  tok,
		resultsDir: resultsDir,
		logger:     logger,
	}, nil
}

// ResultsPath returns where the result file of spec is written.
func (p *Pipeline) ResultsPath(spec string) string {
	base := filepath.Base(spec)
	return filepath.Join(p.resultsDir, strings.TrimSuffix(base, filepath.Ext(base))+ResultSuffix)
}

// ProcessPair classifies one log against its specification and writes the
// merged result file. Classifier detection and specification parsing
// failures are fatal for the pair and returned as *diag.Error.
func (p *Pipeline) ProcessPair(pair Pair) (*Result, error) {
	logger := p.logger.With("log", pair.Log, "spec", pair.Spec)

	c, err := p.registry.Detect(pair.Spec)
	if err != nil {
		return nil, err
	}
	benchmark := strings.ToLower(c.Name())

	data, err := os.ReadFile(pair.Spec)
	if err != nil {
		return nil, fmt.Errorf("read specification: %w", err)
	}
	spec, err := record.ParseDocument(data)
	if err != nil {
		return nil, diag.NewMalformedSpecification(pair.Spec, err)
	}

	text, err := logparse.ReadLog(pair.Log)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	blocks, diags := p.tokenizer.Tokenize(text, c)
	set, d := reconcile.Reconcile(benchmark, blocks, spec)
	diags.Extend(d)

	doc, err := set.Document(spec)
	if err != nil {
		return nil, fmt.Errorf("merge results: %w", err)
	}
	if err := os.MkdirAll(p.resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	out := p.ResultsPath(pair.Spec)
	if err := doc.WriteFile(out); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}

	written, err := record.ReadDocument(out)
	if err != nil {
		return nil, fmt.Errorf("re-read results: %w", err)
	}
	diags.Extend(reconcile.Validate(spec, written))

	counts := aggregate.Compute(benchmark, set.Records())
	diags.Extend(counts.Warnings)

	diags.Log(logger)
	logger.Info("processed pair",
		"benchmark", benchmark,
		"blocks", blocks.Len(),
		"tests", set.Len(),
		"results", out,
	)

	return &Result{
		Pair:        pair,
		Benchmark:   benchmark,
		ResultsFile: out,
		Blocks:      blocks.Len(),
		Set:         set,
		Counts:      counts,
		Diagnostics: diags,
	}, nil
}

// RunBatch processes pairs sequentially. A failing pair is logged and
// recorded; the remaining pairs still run.
func (p *Pipeline) RunBatch(pairs []Pair) *Batch {
	batch := &Batch{Results: []*Result{}, Failures: []Failure{}}
	for _, pair := range pairs {
		res, err := p.ProcessPair(pair)
		if err != nil {
			p.logger.Error("pair failed", "log", pair.Log, "spec", pair.Spec, "error", err)
			batch.Failures = append(batch.Failures, Failure{Pair: pair, Err: err})
			continue
		}
		batch.Results = append(batch.Results, res)
	}
	return batch
}
