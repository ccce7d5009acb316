// Package reconcile aligns parsed test blocks with the expected test-id set
// of a specification file.
//
// After reconciliation every expected id has exactly one record, every
// record carries the required fields, and every record that needed a
// default, or has no output, is flagged for manual check.
package reconcile

import (
	"fmt"

	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/extract"
	"github.com/tollsimy/rapid/internal/logparse"
	"github.com/tollsimy/rapid/internal/record"
)

// MissingOutput is the placeholder stored when a record has no output field.
const MissingOutput = "Missing output data"

// Set is a reconciled record set in specification order.
type Set struct {
	Benchmark string
	ids       []string
	records   map[string]record.TestRecord
}

// NewSet returns an empty set.
func NewSet(benchmark string) *Set {
	return &Set{Benchmark: benchmark, records: make(map[string]record.TestRecord)}
}

// Add stores r, keeping the position of an earlier record with the same id.
func (s *Set) Add(r record.TestRecord) {
	if _, ok := s.records[r.TestID]; !ok {
		s.ids = append(s.ids, r.TestID)
	}
	s.records[r.TestID] = r
}

// Len returns the number of records.
func (s *Set) Len() int { return len(s.ids) }

// IDs returns the test ids in order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Get returns the record for id.
func (s *Set) Get(id string) (record.TestRecord, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Records returns the records in order.
func (s *Set) Records() []record.TestRecord {
	out := make([]record.TestRecord, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.records[id])
	}
	return out
}

// Document merges the set into the entries of spec, in spec order.
// Ids of the set missing from spec are appended.
func (s *Set) Document(spec *record.Document) (*record.Document, error) {
	doc := record.NewDocument()
	ids := append([]string(nil), spec.IDs...)
	for _, id := range s.ids {
		if !spec.Has(id) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		base := spec.Entries[id]
		r, ok := s.records[id]
		if !ok {
			doc.Put(id, base.Clone())
			continue
		}
		entry, err := record.EncodeRecord(base, r)
		if err != nil {
			return nil, err
		}
		doc.Put(id, entry)
	}
	return doc, nil
}

// Reconcile builds one record per expected id of spec. Parsed blocks are
// classified; expected ids absent from the log are synthesized as probable
// communication failures. Blocks whose name is not expected are reported
// and left out.
func Reconcile(benchmark string, blocks *logparse.Blocks, spec *record.Document) (*Set, diag.List) {
	var diags diag.List

	for _, name := range blocks.Names() {
		if !spec.Has(name) {
			diags.Warn(diag.CodeUnexpectedTestEntry, name, "test %s is not in the specification; ignored", name)
		}
	}

	set := NewSet(benchmark)
	for _, id := range spec.IDs {
		var entry record.Entry
		if block, ok := blocks.Get(id); ok {
			built := extract.BuildRecord(block)
			entry = record.Entry{Args: &built.Args, Output: &built.Output, Status: &built.Status}
		} else {
			diags.Warn(diag.CodeMissingTestEntry, id, "test %s not found in log file, probable comm_failure", id)
			empty, status := "", record.EmptyStatus()
			entry = record.Entry{Args: &empty, Output: &empty, Status: &status}
		}
		entry.BitPosition = spec.BitPosition(id)

		r, d := Complete(id, entry)
		r.Benchmark = benchmark
		diags.Extend(d)
		set.Add(r)
	}
	return set, diags
}

// Complete fills the documented default of every missing required field and
// derives the manual-check flag. A flag already set on entry is kept.
func Complete(id string, entry record.Entry) (record.TestRecord, diag.List) {
	var diags diag.List
	r := record.TestRecord{TestID: id, BitPosition: entry.BitPosition}
	manual := entry.NeedsManualCheck != nil && *entry.NeedsManualCheck

	if entry.Args != nil {
		r.Args = *entry.Args
	} else {
		diags.Warn(diag.CodeFieldMissing, id, "test %s is missing args; defaulted to empty", id)
		manual = true
	}
	if entry.Output != nil {
		r.Output = *entry.Output
	} else {
		diags.Warn(diag.CodeFieldMissing, id, "test %s is missing output; defaulted to %q", id, MissingOutput)
		r.Output = MissingOutput
		manual = true
	}
	if entry.Status != nil {
		r.Status = entry.Status.Normalize()
	} else {
		diags.Warn(diag.CodeFieldMissing, id, "test %s is missing status; defaulted to inconclusive", id)
		r.Status = record.EmptyStatus()
		manual = true
	}
	if r.Output == "" {
		manual = true
	}
	r.NeedsManualCheck = manual
	return r, diags
}

// Validate checks a result document against the expected document: equal
// size, every expected id present, every entry carrying the required fields.
// Violations are reported; none is fatal.
func Validate(expected, result *record.Document) diag.List {
	var diags diag.List
	if expected.Len() != result.Len() {
		diags.Warn(diag.CodeValidationMismatch, "", "number of objects mismatch: expected %d, got %d", expected.Len(), result.Len())
	}
	for _, id := range expected.IDs {
		if !result.Has(id) {
			diags.Warn(diag.CodeValidationMismatch, id, "missing object %s in results", id)
		}
	}
	for _, id := range result.IDs {
		if missing := record.DecodeEntry(result.Entries[id]).Missing(); len(missing) > 0 {
			diags.Warn(diag.CodeValidationMismatch, id, "object %s is missing required fields: %v", id, missing)
		}
	}
	return diags
}

// ValidateSet checks a record set against the expected document.
func ValidateSet(expected *record.Document, set *Set) (diag.List, error) {
	doc, err := set.Document(expected)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return Validate(expected, doc), nil
}
