// Package extract turns one test's output text into a structured status by
// querying a classifier.
package extract

import (
	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/logparse"
	"github.com/tollsimy/rapid/internal/record"
)

// BuildStatus queries c for every capability and assembles the status.
// Events are appended in the fixed order trap, halt, comm_failure,
// exec_failure, hw_reset. The class depends only on c.Result.
func BuildStatus(c classifier.Classifier, text string) record.Status {
	events := []record.Event{}

	if scause, ok := c.Trap(text); ok {
		sepc, _ := c.TrapAddress(text)
		stval, _ := c.TrapValue(text)
		events = append(events, record.Trap(scause, sepc, stval))
	}

	checks := []struct {
		kind   record.EventKind
		detect func(string) bool
	}{
		{record.EventHalt, c.Halt},
		{record.EventCommFailure, c.CommFailure},
		{record.EventExecFailure, c.ExecFailure},
		{record.EventHWReset, c.HWReset},
	}
	for _, check := range checks {
		if check.detect(text) {
			events = append(events, record.Event{Kind: check.kind})
		}
	}

	return record.Status{
		Class:  record.ClassFromResult(c.Result(text)),
		SDC:    c.SDC(text),
		Events: events,
	}
}

// BuildRecord builds the record for one tokenized block.
func BuildRecord(b logparse.Block) record.TestRecord {
	return record.TestRecord{
		TestID:    b.Name,
		Benchmark: b.Benchmark,
		Args:      b.Args,
		Output:    b.Output,
		Status:    BuildStatus(b.Classifier, b.Output),
	}
}
