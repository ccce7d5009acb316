package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/config"
	"github.com/tollsimy/rapid/internal/logging"
	"github.com/tollsimy/rapid/internal/logparse"
	"github.com/tollsimy/rapid/internal/record"
)

// Scenario defines one end-to-end classification case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Benchmark names the classifier active before any benchmark switch.
	Benchmark string `yaml:"benchmark"`

	// Builtins lists built-in classifiers to register.
	Builtins []string `yaml:"builtins,omitempty"`

	// Classifiers are inline classifier definitions.
	Classifiers []yaml.Node `yaml:"classifiers,omitempty"`

	// Format overrides the default log format.
	Format *logparse.Format `yaml:"format,omitempty"`

	// Spec is the expected test set, in order.
	Spec []SpecEntry `yaml:"spec"`

	// Log is the raw log text.
	Log string `yaml:"log"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// SpecEntry is one expected test.
type SpecEntry struct {
	ID          string `yaml:"id"`
	BitPosition *int   `yaml:"bit_position,omitempty"`
}

// Assertion checks one property of a Result.
type Assertion struct {
	// Type is one of record, count, blocks, diagnostic, consistent.
	Type string `yaml:"type"`

	// ID names the test (record).
	ID string `yaml:"id,omitempty"`

	// Class, Events, SDC, Manual and Output are compared when set (record).
	// Events lists event kinds in order; an empty list expects no events.
	Class  string   `yaml:"class,omitempty"`
	Events []string `yaml:"events,omitempty"`
	SDC    *bool    `yaml:"sdc,omitempty"`
	Manual *bool    `yaml:"manual,omitempty"`
	Output *string  `yaml:"output,omitempty"`

	// Bucket names the aggregate bucket (count).
	Bucket string `yaml:"bucket,omitempty"`

	// Code names the diagnostic code (diagnostic).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number (count, blocks, diagnostic).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord     = "record"
	AssertCount      = "count"
	AssertBlocks     = "blocks"
	AssertDiagnostic = "diagnostic"
	AssertConsistent = "consistent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", path, s.Name, prev)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Registry builds the classifier registry of the scenario.
func (s *Scenario) Registry() (*classifier.Registry, error) {
	reg := classifier.NewRegistry(logging.Discard())
	for _, name := range s.Builtins {
		ctor, ok := classifier.Builtin(name)
		if !ok {
			return nil, fmt.Errorf("unknown built-in classifier %q", name)
		}
		if err := reg.Register(ctor()); err != nil {
			return nil, err
		}
	}
	for i := range s.Classifiers {
		var def classifier.Definition
		if err := config.DecodeNode(&s.Classifiers[i], &def); err != nil {
			return nil, fmt.Errorf("classifiers[%d]: %w", i, err)
		}
		rules, err := classifier.Compile(def)
		if err != nil {
			return nil, fmt.Errorf("classifiers[%d]: %w", i, err)
		}
		if err := reg.Register(rules); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LogFormat returns the scenario format, or the default one.
func (s *Scenario) LogFormat() logparse.Format {
	if s.Format != nil {
		return *s.Format
	}
	return logparse.DefaultFormat()
}

// Document builds the specification document.
func (s *Scenario) Document() (*record.Document, error) {
	doc := record.NewDocument()
	for _, e := range s.Spec {
		entry := record.Object{}
		if e.BitPosition != nil {
			if err := entry.SetValue(record.KeyBitPosition, *e.BitPosition); err != nil {
				return nil, err
			}
		}
		doc.Put(e.ID, entry)
	}
	return doc, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.Description == "" {
		return errors.New("description is required")
	}

	if s.Benchmark == "" {
		return errors.New("benchmark is required")
	}

	if len(s.Builtins) == 0 && len(s.Classifiers) == 0 {
		return errors.New("at least one of builtins or classifiers is required")
	}

	if len(s.Spec) == 0 {
		return errors.New("spec list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Spec))
	for i, e := range s.Spec {
		if e.ID == "" {
			return fmt.Errorf("spec[%d]: id is required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("spec[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
	}

	if s.Format != nil {
		if err := s.Format.Validate(); err != nil {
			return fmt.Errorf("format: %w", err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecord:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for record", index)
		}
		if a.Class != "" {
			if _, err := record.ParseClass(a.Class); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
		for _, k := range a.Events {
			if _, err := record.ParseEventKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertCount:
		if a.Bucket == "" {
			return fmt.Errorf("assertions[%d]: bucket is required for count", index)
		}
		if !knownBucket(a.Bucket) {
			return fmt.Errorf("assertions[%d]: unknown bucket %q", index, a.Bucket)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertBlocks:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertConsistent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
