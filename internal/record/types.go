package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Class is the verdict of a classifier for one test.
type Class string

const (
	ClassPassed  Class = "passed"
	ClassFailed  Class = "failed"
	ClassOutlier Class = "outlier"
)

// Classes lists every class in report order.
var Classes = []Class{ClassPassed, ClassFailed, ClassOutlier}

// Result codes returned by classifiers.
const (
	ResultPassed  = 0
	ResultFailed  = 1
	ResultOutlier = 2
)

// ClassFromResult maps a classifier result code to a class.
// Any code other than passed or failed is an outlier.
func ClassFromResult(code int) Class {
	switch code {
	case ResultPassed:
		return ClassPassed
	case ResultFailed:
		return ClassFailed
	default:
		return ClassOutlier
	}
}

// ParseClass validates a class name.
func ParseClass(s string) (Class, error) {
	c := Class(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ClassPassed, ClassFailed, ClassOutlier:
		return c, nil
	}
	return "", fmt.Errorf("unknown class %q", s)
}

// EventKind names an event variant.
type EventKind string

const (
	EventTrap        EventKind = "trap"
	EventHalt        EventKind = "halt"
	EventCommFailure EventKind = "comm_failure"
	EventExecFailure EventKind = "exec_failure"
	EventHWReset     EventKind = "hw_reset"
)

// EventKinds lists every kind in canonical order.
var EventKinds = []EventKind{EventTrap, EventHalt, EventCommFailure, EventExecFailure, EventHWReset}

// ParseEventKind validates an event type name.
// The legacy spelling "hw-reset" is accepted.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(strings.TrimSpace(s)); k {
	case EventTrap, EventHalt, EventCommFailure, EventExecFailure, EventHWReset:
		return k, nil
	case "hw-reset":
		return EventHWReset, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// kindOrder returns the canonical position of k.
func kindOrder(k EventKind) int {
	for i, kind := range EventKinds {
		if kind == k {
			return i
		}
	}
	return len(EventKinds)
}

// Event is one detected condition. Scause, Sepc and Stval apply to traps only.
type Event struct {
	Kind   EventKind
	Scause int
	Sepc   *string
	Stval  *string
}

// Trap builds a trap event. Empty address or value strings are stored as null.
func Trap(scause int, sepc, stval string) Event {
	e := Event{Kind: EventTrap, Scause: scause}
	if sepc != "" {
		e.Sepc = &sepc
	}
	if stval != "" {
		e.Stval = &stval
	}
	return e
}

// ParseCause parses an scause literal. Base prefixes are accepted. Values with
// the interrupt bit set are kept as their 64-bit two's complement, so a cause
// round-trips through FormatCause unchanged.
func ParseCause(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return int(int64(v)), nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// FormatCause writes code as an unsigned hex literal.
func FormatCause(code int) string {
	return fmt.Sprintf("%#x", uint64(code))
}

// MarshalJSON writes {"type": kind} plus the trap fields for traps.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == EventTrap {
		return json.Marshal(struct {
			Type   EventKind `json:"type"`
			Scause uint64    `json:"scause"`
			Sepc   *string   `json:"sepc"`
			Stval  *string   `json:"stval"`
		}{e.Kind, uint64(e.Scause), e.Sepc, e.Stval})
	}
	return json.Marshal(struct {
		Type EventKind `json:"type"`
	}{e.Kind})
}

// UnmarshalJSON reads an event object. scause may be a number or a numeric
// string (base prefixes accepted), as written by older tooling.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   string          `json:"type"`
		Scause json.RawMessage `json:"scause"`
		Sepc   *string         `json:"sepc"`
		Stval  *string         `json:"stval"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseEventKind(raw.Type)
	if err != nil {
		return err
	}
	*e = Event{Kind: kind}
	if kind != EventTrap {
		return nil
	}
	e.Sepc, e.Stval = raw.Sepc, raw.Stval
	if len(raw.Scause) == 0 || string(raw.Scause) == "null" {
		return nil
	}
	s := string(raw.Scause)
	if raw.Scause[0] == '"' {
		if err := json.Unmarshal(raw.Scause, &s); err != nil {
			return fmt.Errorf("trap scause: %w", err)
		}
	}
	code, err := ParseCause(s)
	if err != nil {
		return fmt.Errorf("trap scause %q: %w", s, err)
	}
	e.Scause = code
	return nil
}

// Status is the structured verdict for one test.
type Status struct {
	Class  Class   `json:"class"`
	SDC    bool    `json:"SDC"`
	Events []Event `json:"events"`
}

// EmptyStatus is the status materialized for records whose status is missing:
// inconclusive, no events, no SDC.
func EmptyStatus() Status {
	return Status{Class: ClassOutlier, Events: []Event{}}
}

// MarshalJSON always writes events as an array.
func (s Status) MarshalJSON() ([]byte, error) {
	type plain Status
	p := plain(s)
	if p.Events == nil {
		p.Events = []Event{}
	}
	return json.Marshal(p)
}

// HasEvent reports whether the status carries an event of kind k.
func (s Status) HasEvent(k EventKind) bool {
	_, ok := s.Event(k)
	return ok
}

// Event returns the event of kind k, if present.
func (s Status) Event(k EventKind) (Event, bool) {
	for _, e := range s.Events {
		if e.Kind == k {
			return e, true
		}
	}
	return Event{}, false
}

// Clean reports whether the status has no events and no SDC.
func (s Status) Clean() bool {
	return len(s.Events) == 0 && !s.SDC
}

// Conditions counts the distinct qualifying conditions: one per event kind,
// plus one for SDC.
func (s Status) Conditions() int {
	n := len(s.Events)
	if s.SDC {
		n++
	}
	return n
}

// Normalize drops repeated kinds (first wins) and sorts events canonically.
func (s Status) Normalize() Status {
	seen := make(map[EventKind]bool, len(s.Events))
	events := make([]Event, 0, len(s.Events))
	for _, e := range s.Events {
		if seen[e.Kind] {
			continue
		}
		seen[e.Kind] = true
		events = append(events, e)
	}
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && kindOrder(events[j].Kind) < kindOrder(events[j-1].Kind); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
	s.Events = events
	return s
}

// TestRecord is the reconciled outcome of one test.
type TestRecord struct {
	TestID           string `json:"test_id"`
	Benchmark        string `json:"benchmark"`
	BitPosition      *int   `json:"bit_position"`
	Args             string `json:"args"`
	Output           string `json:"output"`
	Status           Status `json:"status"`
	NeedsManualCheck bool   `json:"needs_manual_check"`
}
