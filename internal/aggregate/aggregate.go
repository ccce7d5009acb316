// Package aggregate computes the hierarchical and overlap-aware counts used
// for reliability reporting, and checks that independently computed totals
// reconcile.
//
// Terminology:
//   - A condition is one event kind present on a record, or SDC.
//   - Clean means zero conditions.
//   - The strict partition covers records not flagged for manual check. A
//     record with exactly one condition lands in that condition's bucket;
//     two or more go to "multiple"; failed or outlier records with none go
//     to "no event". Flagged records are "uncategorized".
//
// Every bucket is counted in its own pass over the records, so the
// consistency checks compare genuinely independent numbers.
package aggregate

import (
	"sort"

	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/record"
)

// ClassCounts holds the counts of one class.
type ClassCounts struct {
	Total  int                      `json:"total"`
	Clean  int                      `json:"clean"`
	Events map[record.EventKind]int `json:"events"`
	SDC    int                      `json:"sdc"`
	Manual int                      `json:"needs_manual_check"`

	// Overlapping counts records carrying two or more conditions.
	Overlapping int `json:"overlapping"`
}

// MembershipSum adds every event membership, SDC and clean.
func (c ClassCounts) MembershipSum() int {
	sum := c.SDC + c.Clean
	for _, n := range c.Events {
		sum += n
	}
	return sum
}

// OverlapDiff is how far MembershipSum exceeds Total.
func (c ClassCounts) OverlapDiff() int {
	return c.MembershipSum() - c.Total
}

// Partition is the strict failure partition.
type Partition struct {
	Exactly       map[record.EventKind]int `json:"exactly"`
	ExactlySDC    int                      `json:"exactly_sdc"`
	Multiple      int                      `json:"multiple_events"`
	NoEvent       int                      `json:"no_specific_event"`
	Uncategorized int                      `json:"uncategorized"`

	// CleanPassed counts clean passes among records not flagged for
	// manual check; they are the only records outside every bucket.
	CleanPassed int `json:"clean_passed"`
}

// Others is the joint "multiple events" and "no specific event" bucket.
func (p Partition) Others() int {
	return p.Multiple + p.NoEvent
}

// Sum adds every bucket: exactly-one buckets, others and uncategorized.
func (p Partition) Sum() int {
	sum := p.ExactlySDC + p.Others() + p.Uncategorized
	for _, n := range p.Exactly {
		sum += n
	}
	return sum
}

// Coverage summarizes how much of the expected set produced usable data.
type Coverage struct {
	Total            int `json:"total_tests"`
	Classified       int `json:"classified"`
	WithOutput       int `json:"with_output"`
	NeedsManualCheck int `json:"needs_manual_check"`
}

// TrapCause counts traps with one cause code.
type TrapCause struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BitStats counts outcomes at one injected bit position.
type BitStats struct {
	Position int `json:"bit_position"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Trap     int `json:"trap"`
	Halt     int `json:"halt"`
}

// Counts is the aggregate of one benchmark.
type Counts struct {
	Benchmark    string                        `json:"benchmark"`
	Total        int                           `json:"total_tests"`
	Classes      map[record.Class]*ClassCounts `json:"classes"`
	Events       map[record.EventKind]int      `json:"events"`
	SDC          int                           `json:"sdc"`
	Partition    Partition                     `json:"partition"`
	Coverage     Coverage                      `json:"coverage"`
	TrapCauses   []TrapCause                   `json:"trap_causes"`
	BitPositions []BitStats                    `json:"bit_positions"`
	Warnings     diag.List                     `json:"warnings"`
}

// Class returns the counts of c, never nil.
func (c *Counts) Class(class record.Class) ClassCounts {
	if cc, ok := c.Classes[class]; ok && cc != nil {
		return *cc
	}
	return ClassCounts{Events: map[record.EventKind]int{}}
}

// Consistent reports whether no consistency warning was raised.
func (c *Counts) Consistent() bool {
	return !c.Warnings.Has(diag.CodeConsistencyWarning)
}

// Aggregator computes counts with a given trap cause table.
type Aggregator struct {
	Causes CauseNames
}

// New returns an aggregator using causes.
func New(causes CauseNames) *Aggregator {
	return &Aggregator{Causes: causes}
}

// Compute aggregates records with the default U74-MC cause table.
func Compute(benchmark string, records []record.TestRecord) *Counts {
	return New(U74MC()).Compute(benchmark, records)
}

// Compute aggregates the reconciled records of one benchmark.
func (a *Aggregator) Compute(benchmark string, records []record.TestRecord) *Counts {
	c := &Counts{
		Benchmark: benchmark,
		Total:     len(records),
		Classes:   make(map[record.Class]*ClassCounts, len(record.Classes)),
		Events:    make(map[record.EventKind]int, len(record.EventKinds)),
	}

	for _, class := range record.Classes {
		c.Classes[class] = a.classCounts(class, records)
	}
	for _, kind := range record.EventKinds {
		c.Events[kind] = count(records, hasEvent(kind))
	}
	c.SDC = count(records, isSDC)

	c.Partition = partition(records)
	c.Coverage = Coverage{
		Total:            len(records),
		Classified:       count(records, classified),
		WithOutput:       count(records, withOutput),
		NeedsManualCheck: count(records, manual),
	}
	c.TrapCauses = a.trapCauses(records)
	c.BitPositions = bitPositions(records)

	c.check()
	return c
}

func (a *Aggregator) classCounts(class record.Class, records []record.TestRecord) *ClassCounts {
	in := inClass(class)
	cc := &ClassCounts{
		Total:       count(records, in),
		Clean:       count(records, and(in, clean)),
		Events:      make(map[record.EventKind]int, len(record.EventKinds)),
		SDC:         count(records, and(in, isSDC)),
		Manual:      count(records, and(in, manual)),
		Overlapping: count(records, and(in, conditionsAtLeast(2))),
	}
	for _, kind := range record.EventKinds {
		cc.Events[kind] = count(records, and(in, hasEvent(kind)))
	}
	return cc
}

func partition(records []record.TestRecord) Partition {
	categorized := not(manual)
	p := Partition{
		Exactly:       make(map[record.EventKind]int, len(record.EventKinds)),
		ExactlySDC:    count(records, and(categorized, isSDC, conditionsExactly(1))),
		Multiple:      count(records, and(categorized, conditionsAtLeast(2))),
		NoEvent:       count(records, and(categorized, not(inClass(record.ClassPassed)), clean)),
		Uncategorized: count(records, manual),
		CleanPassed:   count(records, and(categorized, inClass(record.ClassPassed), clean)),
	}
	for _, kind := range record.EventKinds {
		p.Exactly[kind] = count(records, and(categorized, hasEvent(kind), conditionsExactly(1)))
	}
	return p
}

// check verifies the partition invariant and the per-class overlap
// identity, recording a warning for each violation.
func (c *Counts) check() {
	if got, want := c.Partition.Sum(), c.Total-c.Partition.CleanPassed; got != want {
		c.Warnings.Warn(diag.CodeConsistencyWarning, "",
			"%s: category sum (%d) does not match total failures (%d)", c.Benchmark, got, want)
	}
	for _, class := range record.Classes {
		cc := c.Class(class)
		if diff := cc.OverlapDiff(); diff != cc.Overlapping {
			c.Warnings.Warn(diag.CodeConsistencyWarning, "",
				"%s: %s membership sum exceeds total by %d but %d tests overlap",
				c.Benchmark, class, diff, cc.Overlapping)
		}
	}
}

func (a *Aggregator) trapCauses(records []record.TestRecord) []TrapCause {
	byCode := make(map[int]int)
	for _, r := range records {
		if e, ok := r.Status.Event(record.EventTrap); ok {
			byCode[e.Scause]++
		}
	}
	causes := make([]TrapCause, 0, len(byCode))
	for code, n := range byCode {
		causes = append(causes, TrapCause{Code: code, Name: a.Causes.Name(code), Count: n})
	}
	sort.Slice(causes, func(i, j int) bool {
		if causes[i].Count != causes[j].Count {
			return causes[i].Count > causes[j].Count
		}
		return causes[i].Code < causes[j].Code
	})
	return causes
}

func bitPositions(records []record.TestRecord) []BitStats {
	byPos := make(map[int]*BitStats)
	for _, r := range records {
		if r.BitPosition == nil {
			continue
		}
		pos := *r.BitPosition
		s, ok := byPos[pos]
		if !ok {
			s = &BitStats{Position: pos}
			byPos[pos] = s
		}
		switch r.Status.Class {
		case record.ClassPassed:
			s.Passed++
		case record.ClassFailed:
			s.Failed++
		}
		if r.Status.HasEvent(record.EventTrap) {
			s.Trap++
		}
		if r.Status.HasEvent(record.EventHalt) {
			s.Halt++
		}
	}
	out := make([]BitStats, 0, len(byPos))
	for _, s := range byPos {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
