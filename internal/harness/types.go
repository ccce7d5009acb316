package harness

import (
	"github.com/tollsimy/rapid/internal/aggregate"
	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/record"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Blocks is the number of blocks the tokenizer produced.
	Blocks int `json:"blocks"`

	// Records are the records as read back from the store, in spec order.
	Records []record.TestRecord `json:"records"`

	// Counts is the aggregate of Records.
	Counts *aggregate.Counts `json:"counts"`

	// Diagnostics collects every diagnostic raised by the run, aggregation
	// warnings included.
	Diagnostics diag.List `json:"diagnostics"`

	// Document is the result document as written.
	Document *record.Document `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Errors:  []string{},
		Records: []record.TestRecord{},
	}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Record returns the record of id.
func (r *Result) Record(id string) (record.TestRecord, bool) {
	for _, rec := range r.Records {
		if rec.TestID == id {
			return rec, true
		}
	}
	return record.TestRecord{}, false
}
