package aggregate

import (
	"fmt"
	"strings"

	"github.com/tollsimy/rapid/internal/record"
)

type predicate func(record.TestRecord) bool

func count(records []record.TestRecord, p predicate) int {
	n := 0
	for _, r := range records {
		if p(r) {
			n++
		}
	}
	return n
}

func and(ps ...predicate) predicate {
	return func(r record.TestRecord) bool {
		for _, p := range ps {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

func not(p predicate) predicate {
	return func(r record.TestRecord) bool { return !p(r) }
}

func inClass(c record.Class) predicate {
	return func(r record.TestRecord) bool { return r.Status.Class == c }
}

func hasEvent(k record.EventKind) predicate {
	return func(r record.TestRecord) bool { return r.Status.HasEvent(k) }
}

func conditionsExactly(n int) predicate {
	return func(r record.TestRecord) bool { return r.Status.Conditions() == n }
}

func conditionsAtLeast(n int) predicate {
	return func(r record.TestRecord) bool { return r.Status.Conditions() >= n }
}

func isSDC(r record.TestRecord) bool      { return r.Status.SDC }
func clean(r record.TestRecord) bool      { return r.Status.Clean() }
func manual(r record.TestRecord) bool     { return r.NeedsManualCheck }
func withOutput(r record.TestRecord) bool { return r.Output != "" }

func classified(r record.TestRecord) bool {
	_, err := record.ParseClass(string(r.Status.Class))
	return err == nil
}

// Selectors lists the names Filter accepts besides classes and event kinds.
var Selectors = []string{"SDC", "clean", "manual"}

// Filter returns the ids of records matching selector, in input order.
// selector is a class, an event kind, "SDC", "clean" or "manual".
func Filter(records []record.TestRecord, selector string) ([]string, error) {
	p, err := selectorPredicate(selector)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, r := range records {
		if p(r) {
			ids = append(ids, r.TestID)
		}
	}
	return ids, nil
}

func selectorPredicate(selector string) (predicate, error) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "sdc":
		return isSDC, nil
	case "clean":
		return clean, nil
	case "manual", "needs_manual_check":
		return manual, nil
	}
	if c, err := record.ParseClass(selector); err == nil {
		return inClass(c), nil
	}
	if k, err := record.ParseEventKind(selector); err == nil {
		return hasEvent(k), nil
	}
	return nil, fmt.Errorf("unknown selector %q (want a class, an event kind, or one of %v)", selector, Selectors)
}
