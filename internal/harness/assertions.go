package harness

import (
	"fmt"
	"strings"

	"github.com/tollsimy/rapid/internal/aggregate"
	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/record"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome

	// Diagnostics are the run diagnostics, for context.
	Diagnostics diag.List
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&buf, "\nDiagnostics:\n")
		for i, d := range e.Diagnostics {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertRecord:
		return assertRecord(result, a)
	case AssertCount:
		return assertCount(result, a)
	case AssertBlocks:
		return assertBlocks(result, a)
	case AssertDiagnostic:
		return assertDiagnostic(result, a)
	case AssertConsistent:
		return assertConsistent(result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertRecord compares the fields set on a against the record of a.ID.
func assertRecord(result *Result, a Assertion) error {
	r, ok := result.Record(a.ID)
	if !ok {
		return &AssertionError{
			Type:        AssertRecord,
			Expected:    fmt.Sprintf("record %s", a.ID),
			Actual:      "not found",
			Diagnostics: result.Diagnostics,
		}
	}

	fail := func(field string, expected, actual any) error {
		return &AssertionError{
			Type:        AssertRecord,
			Expected:    fmt.Sprintf("%s %s = %v", a.ID, field, expected),
			Actual:      fmt.Sprintf("%v", actual),
			Diagnostics: result.Diagnostics,
		}
	}

	if a.Class != "" && string(r.Status.Class) != a.Class {
		return fail("class", a.Class, r.Status.Class)
	}
	if a.Events != nil {
		got := eventKinds(r.Status)
		if strings.Join(got, ",") != strings.Join(normalizeKinds(a.Events), ",") {
			return fail("events", a.Events, got)
		}
	}
	if a.SDC != nil && r.Status.SDC != *a.SDC {
		return fail("SDC", *a.SDC, r.Status.SDC)
	}
	if a.Manual != nil && r.NeedsManualCheck != *a.Manual {
		return fail("needs_manual_check", *a.Manual, r.NeedsManualCheck)
	}
	if a.Output != nil && r.Output != *a.Output {
		return fail("output", fmt.Sprintf("%q", *a.Output), fmt.Sprintf("%q", r.Output))
	}
	return nil
}

func eventKinds(s record.Status) []string {
	out := make([]string, 0, len(s.Events))
	for _, e := range s.Events {
		out = append(out, string(e.Kind))
	}
	return out
}

// normalizeKinds maps accepted spellings ("hw-reset") to canonical kinds.
func normalizeKinds(kinds []string) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if kind, err := record.ParseEventKind(k); err == nil {
			out = append(out, string(kind))
			continue
		}
		out = append(out, k)
	}
	return out
}

func assertCount(result *Result, a Assertion) error {
	got, ok := bucketValue(result.Counts, a.Bucket)
	if !ok {
		return fmt.Errorf("unknown bucket %q", a.Bucket)
	}
	if got != a.Count {
		return &AssertionError{
			Type:        AssertCount,
			Expected:    fmt.Sprintf("%s = %d", a.Bucket, a.Count),
			Actual:      fmt.Sprintf("%d", got),
			Diagnostics: result.Diagnostics,
		}
	}
	return nil
}

func assertBlocks(result *Result, a Assertion) error {
	if result.Blocks != a.Count {
		return &AssertionError{
			Type:     AssertBlocks,
			Expected: fmt.Sprintf("%d blocks", a.Count),
			Actual:   fmt.Sprintf("%d blocks", result.Blocks),
		}
	}
	return nil
}

func assertDiagnostic(result *Result, a Assertion) error {
	got := result.Diagnostics.Count(diag.Code(a.Code))
	if got != a.Count {
		return &AssertionError{
			Type:        AssertDiagnostic,
			Expected:    fmt.Sprintf("%d diagnostics with code %s", a.Count, a.Code),
			Actual:      fmt.Sprintf("%d", got),
			Diagnostics: result.Diagnostics,
		}
	}
	return nil
}

func assertConsistent(result *Result) error {
	if result.Counts == nil || result.Counts.Consistent() {
		return nil
	}
	return &AssertionError{
		Type:        AssertConsistent,
		Expected:    "no consistency warnings",
		Actual:      fmt.Sprintf("%d warnings", len(result.Counts.Warnings)),
		Diagnostics: result.Counts.Warnings,
	}
}

// bucketValue resolves a bucket name against c. Buckets are "total", a
// class, an event kind, "sdc", a coverage field, "exactly_<kind>",
// "exactly_sdc" or a partition field.
func bucketValue(c *aggregate.Counts, name string) (int, bool) {
	if c == nil {
		c = &aggregate.Counts{}
	}
	if class, err := record.ParseClass(name); err == nil {
		return c.Class(class).Total, true
	}
	if kind, err := record.ParseEventKind(name); err == nil {
		return c.Events[kind], true
	}
	if rest, ok := strings.CutPrefix(name, "exactly_"); ok && rest != "sdc" {
		kind, err := record.ParseEventKind(rest)
		if err != nil {
			return 0, false
		}
		return c.Partition.Exactly[kind], true
	}

	switch name {
	case "total":
		return c.Total, true
	case "sdc":
		return c.SDC, true
	case "classified":
		return c.Coverage.Classified, true
	case "with_output":
		return c.Coverage.WithOutput, true
	case "needs_manual_check":
		return c.Coverage.NeedsManualCheck, true
	case "exactly_sdc":
		return c.Partition.ExactlySDC, true
	case "multiple_events":
		return c.Partition.Multiple, true
	case "no_specific_event":
		return c.Partition.NoEvent, true
	case "others":
		return c.Partition.Others(), true
	case "uncategorized":
		return c.Partition.Uncategorized, true
	case "clean_passed":
		return c.Partition.CleanPassed, true
	}
	return 0, false
}

func knownBucket(name string) bool {
	_, ok := bucketValue(nil, name)
	return ok
}
