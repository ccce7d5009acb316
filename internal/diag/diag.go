// Package diag defines the error taxonomy shared by the parsing, reconciliation
// and aggregation stages.
//
// Two kinds of conditions exist:
//   - Fatal unit errors (*Error): the current (log, specification) pair cannot
//     be processed. Batch processing continues with the next pair.
//   - Diagnostics (Diagnostic): the condition degraded gracefully into flagged
//     but usable output. They are collected in a List and logged.
//
// Nothing in the pipeline drops a condition without producing one of the two.
package diag

import (
	"errors"
	"fmt"
	"log/slog"
)

// Code categorizes a fatal error or a diagnostic.
type Code string

const (
	// CodeClassifierNotFound indicates no registered classifier matches the input.
	CodeClassifierNotFound Code = "CLASSIFIER_NOT_FOUND"

	// CodeMalformedSpecification indicates the specification file cannot be parsed.
	CodeMalformedSpecification Code = "MALFORMED_SPECIFICATION"

	// CodeMissingTestEntry indicates an expected id was absent from the parsed log.
	CodeMissingTestEntry Code = "MISSING_TEST_ENTRY"

	// CodeFieldMissing indicates a required record field was absent and defaulted.
	CodeFieldMissing Code = "FIELD_MISSING"

	// CodeValidationMismatch indicates the reconciled set failed its post-condition.
	CodeValidationMismatch Code = "VALIDATION_MISMATCH"

	// CodeConsistencyWarning indicates an aggregation invariant did not hold.
	CodeConsistencyWarning Code = "CONSISTENCY_WARNING"

	// CodeInvalidClassifier indicates a classifier was rejected at registration.
	CodeInvalidClassifier Code = "INVALID_CLASSIFIER"

	// CodeClassifierSwitchMiss indicates a block named an unregistered benchmark.
	CodeClassifierSwitchMiss Code = "CLASSIFIER_SWITCH_MISS"

	// CodeDuplicateTestEntry indicates two blocks synthesized the same test name.
	CodeDuplicateTestEntry Code = "DUPLICATE_TEST_ENTRY"

	// CodeUnexpectedTestEntry indicates a parsed test is not in the expected set.
	CodeUnexpectedTestEntry Code = "UNEXPECTED_TEST_ENTRY"
)

// Severity ranks a diagnostic for logging.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Error is a fatal error for one processing unit.
type Error struct {
	Code    Code
	Message string

	// Path identifies the affected file, if any.
	Path string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewClassifierNotFound creates the fatal error for an unmatched input file.
// available lists the registered classifier names, for the operator.
func NewClassifierNotFound(path string, available []string) *Error {
	return &Error{
		Code:    CodeClassifierNotFound,
		Message: fmt.Sprintf("no suitable classifier found (available: %v)", available),
		Path:    path,
	}
}

// NewMalformedSpecification creates the fatal error for an unreadable specification.
func NewMalformedSpecification(path string, err error) *Error {
	return &Error{
		Code:    CodeMalformedSpecification,
		Message: "cannot parse specification file",
		Path:    path,
		Err:     err,
	}
}

// IsClassifierNotFound reports whether err is a CLASSIFIER_NOT_FOUND error.
// Uses errors.As to handle wrapped errors.
func IsClassifierNotFound(err error) bool {
	return hasCode(err, CodeClassifierNotFound)
}

// IsMalformedSpecification reports whether err is a MALFORMED_SPECIFICATION error.
func IsMalformedSpecification(err error) bool {
	return hasCode(err, CodeMalformedSpecification)
}

func hasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Diagnostic is a non-fatal condition attached to flagged output.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	TestID   string   `json:"test_id,omitempty"`
	Message  string   `json:"message"`
}

// String renders the diagnostic in one line.
func (d Diagnostic) String() string {
	if d.TestID != "" {
		return fmt.Sprintf("%s: %s (test=%s)", d.Code, d.Message, d.TestID)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Warn appends a warning.
func (l *List) Warn(code Code, testID, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Code:     code,
		Severity: SeverityWarning,
		TestID:   testID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Info appends an informational diagnostic.
func (l *List) Info(code Code, testID, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Code:     code,
		Severity: SeverityInfo,
		TestID:   testID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Extend appends all diagnostics of other.
func (l *List) Extend(other List) {
	*l = append(*l, other...)
}

// Count returns how many diagnostics carry the given code.
func (l List) Count(code Code) int {
	n := 0
	for _, d := range l {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Has reports whether any diagnostic carries the given code.
func (l List) Has(code Code) bool {
	return l.Count(code) > 0
}

// Log writes every diagnostic to logger at a level matching its severity.
func (l List) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, d := range l {
		attrs := []any{"code", string(d.Code)}
		if d.TestID != "" {
			attrs = append(attrs, "test", d.TestID)
		}
		if d.Severity == SeverityWarning {
			logger.Warn(d.Message, attrs...)
		} else {
			logger.Info(d.Message, attrs...)
		}
	}
}
