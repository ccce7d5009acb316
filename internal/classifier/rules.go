package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tollsimy/rapid/internal/config"
	"github.com/tollsimy/rapid/internal/record"
)

// Definition is the declarative form of a classifier.
// Every capability key must be present; pointer fields detect absence.
type Definition struct {
	Name        *string    `yaml:"name"`
	Trap        *TrapDef   `yaml:"trap"`
	TrapAddress *string    `yaml:"trap_address"`
	TrapValue   *string    `yaml:"trap_value"`
	Halt        *Matcher   `yaml:"halt"`
	CommFailure *Matcher   `yaml:"comm_failure"`
	ExecFailure *Matcher   `yaml:"exec_failure"`
	HWReset     *Matcher   `yaml:"hw_reset"`
	SDC         *Matcher   `yaml:"sdc"`
	Result      *ResultDef `yaml:"result"`
}

// Matcher fires when any listed substring or regular expression matches.
// With All set, every entry must match. An empty matcher never fires.
type Matcher struct {
	Contains []string `yaml:"contains,omitempty"`
	Matches  []string `yaml:"matches,omitempty"`
	All      bool     `yaml:"all,omitempty"`
}

// TrapDef detects traps. Cause must capture the cause code in group 1;
// codes parse with base prefixes (0x, 0o, 0b) or as decimal.
type TrapDef struct {
	When  *Matcher `yaml:"when,omitempty"`
	Cause string   `yaml:"cause"`
}

// ResultDef maps output text to a class. Rules are tried in order; the first
// that fires decides. Default applies when none fires (outlier if empty).
type ResultDef struct {
	Rules   []ResultRule `yaml:"rules,omitempty"`
	Default string       `yaml:"default,omitempty"`
}

// ResultRule fires when its matcher fires or any listed event is detected.
type ResultRule struct {
	Matcher `yaml:",inline"`
	Events  []string `yaml:"events,omitempty"`
	Class   string   `yaml:"class"`
}

// DefinitionError reports an invalid classifier definition.
type DefinitionError struct {
	Source  string
	Field   string
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var namePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Rules is a classifier compiled from a Definition.
type Rules struct {
	name        string
	trapWhen    *matcher
	trapCause   *regexp.Regexp
	trapAddress *regexp.Regexp
	trapValue   *regexp.Regexp
	halt        matcher
	commFailure matcher
	execFailure matcher
	hwReset     matcher
	sdc         matcher
	results     []resultRule
	fallback    int
}

type matcher struct {
	contains []string
	patterns []*regexp.Regexp
	all      bool
}

type resultRule struct {
	matcher
	events []record.EventKind
	code   int
}

// LoadDefinition reads and compiles a definition file.
func LoadDefinition(path string) (*Rules, error) {
	var def Definition
	if err := config.DecodeFile(path, &def); err != nil {
		return nil, err
	}
	r, err := Compile(def)
	if err != nil {
		var de *DefinitionError
		if errors.As(err, &de) {
			de.Source = path
		}
		return nil, err
	}
	return r, nil
}

// Compile validates def and builds the classifier.
func Compile(def Definition) (*Rules, error) {
	missing := func(field string) error {
		return &DefinitionError{Field: field, Message: "is required"}
	}
	if def.Name == nil {
		return nil, missing("name")
	}
	name := strings.ToLower(strings.TrimSpace(*def.Name))
	if !namePattern.MatchString(name) {
		return nil, &DefinitionError{Field: "name", Message: fmt.Sprintf("invalid name %q", *def.Name)}
	}
	switch {
	case def.Trap == nil:
		return nil, missing("trap")
	case def.TrapAddress == nil:
		return nil, missing("trap_address")
	case def.TrapValue == nil:
		return nil, missing("trap_value")
	case def.Halt == nil:
		return nil, missing("halt")
	case def.CommFailure == nil:
		return nil, missing("comm_failure")
	case def.ExecFailure == nil:
		return nil, missing("exec_failure")
	case def.HWReset == nil:
		return nil, missing("hw_reset")
	case def.SDC == nil:
		return nil, missing("sdc")
	case def.Result == nil:
		return nil, missing("result")
	}

	r := &Rules{name: name}
	var err error

	if def.Trap.When != nil {
		m, err := compileMatcher("trap.when", *def.Trap.When)
		if err != nil {
			return nil, err
		}
		r.trapWhen = &m
	}
	if r.trapCause, err = compilePattern("trap.cause", def.Trap.Cause); err != nil {
		return nil, err
	}
	if r.trapCause != nil && r.trapCause.NumSubexp() < 1 {
		return nil, &DefinitionError{Field: "trap.cause", Message: "must have a capture group"}
	}
	if r.trapAddress, err = compilePattern("trap_address", *def.TrapAddress); err != nil {
		return nil, err
	}
	if r.trapValue, err = compilePattern("trap_value", *def.TrapValue); err != nil {
		return nil, err
	}

	matchers := []struct {
		field string
		def   *Matcher
		dst   *matcher
	}{
		{"halt", def.Halt, &r.halt},
		{"comm_failure", def.CommFailure, &r.commFailure},
		{"exec_failure", def.ExecFailure, &r.execFailure},
		{"hw_reset", def.HWReset, &r.hwReset},
		{"sdc", def.SDC, &r.sdc},
	}
	for _, m := range matchers {
		if *m.dst, err = compileMatcher(m.field, *m.def); err != nil {
			return nil, err
		}
	}

	for i, rule := range def.Result.Rules {
		field := fmt.Sprintf("result.rules[%d]", i)
		rr := resultRule{}
		if rr.matcher, err = compileMatcher(field, rule.Matcher); err != nil {
			return nil, err
		}
		for _, name := range rule.Events {
			kind, err := record.ParseEventKind(name)
			if err != nil {
				return nil, &DefinitionError{Field: field + ".events", Message: err.Error()}
			}
			rr.events = append(rr.events, kind)
		}
		if rr.empty() && len(rr.events) == 0 {
			return nil, &DefinitionError{Field: field, Message: "rule can never fire"}
		}
		if rr.code, err = classCode(field+".class", rule.Class); err != nil {
			return nil, err
		}
		r.results = append(r.results, rr)
	}
	r.fallback = record.ResultOutlier
	if def.Result.Default != "" {
		if r.fallback, err = classCode("result.default", def.Result.Default); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func classCode(field, name string) (int, error) {
	c, err := record.ParseClass(name)
	if err != nil {
		return 0, &DefinitionError{Field: field, Message: err.Error()}
	}
	switch c {
	case record.ClassPassed:
		return record.ResultPassed, nil
	case record.ClassFailed:
		return record.ResultFailed, nil
	}
	return record.ResultOutlier, nil
}

func compilePattern(field, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &DefinitionError{Field: field, Message: err.Error()}
	}
	return re, nil
}

func compileMatcher(field string, m Matcher) (matcher, error) {
	out := matcher{contains: m.Contains, all: m.All}
	for i, expr := range m.Matches {
		re, err := regexp.Compile(expr)
		if err != nil {
			return matcher{}, &DefinitionError{Field: fmt.Sprintf("%s.matches[%d]", field, i), Message: err.Error()}
		}
		out.patterns = append(out.patterns, re)
	}
	return out, nil
}

func (m matcher) empty() bool {
	return len(m.contains) == 0 && len(m.patterns) == 0
}

func (m matcher) match(text string) bool {
	if m.empty() {
		return false
	}
	for _, s := range m.contains {
		if strings.Contains(text, s) != m.all {
			return !m.all
		}
	}
	for _, re := range m.patterns {
		if re.MatchString(text) != m.all {
			return !m.all
		}
	}
	return m.all
}

func (r *Rules) Name() string { return r.name }

func (r *Rules) Trap(text string) (int, bool) {
	if r.trapCause == nil {
		return 0, false
	}
	if r.trapWhen != nil && !r.trapWhen.match(text) {
		return 0, false
	}
	m := r.trapCause.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	code, err := record.ParseCause(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

func (r *Rules) TrapAddress(text string) (string, bool) {
	if r.trapAddress == nil {
		return "", false
	}
	return firstGroup(r.trapAddress, text)
}

func (r *Rules) TrapValue(text string) (string, bool) {
	if r.trapValue == nil {
		return "", false
	}
	return firstGroup(r.trapValue, text)
}

func (r *Rules) Halt(text string) bool        { return r.halt.match(text) }
func (r *Rules) CommFailure(text string) bool { return r.commFailure.match(text) }
func (r *Rules) ExecFailure(text string) bool { return r.execFailure.match(text) }
func (r *Rules) HWReset(text string) bool     { return r.hwReset.match(text) }
func (r *Rules) SDC(text string) bool         { return r.sdc.match(text) }

func (r *Rules) Result(text string) int {
	for _, rule := range r.results {
		if rule.match(text) || r.anyEvent(rule.events, text) {
			return rule.code
		}
	}
	return r.fallback
}

func (r *Rules) anyEvent(kinds []record.EventKind, text string) bool {
	for _, k := range kinds {
		if r.detect(k, text) {
			return true
		}
	}
	return false
}

func (r *Rules) detect(k record.EventKind, text string) bool {
	switch k {
	case record.EventTrap:
		_, ok := r.Trap(text)
		return ok
	case record.EventHalt:
		return r.Halt(text)
	case record.EventCommFailure:
		return r.CommFailure(text)
	case record.EventExecFailure:
		return r.ExecFailure(text)
	case record.EventHWReset:
		return r.HWReset(text)
	}
	return false
}
