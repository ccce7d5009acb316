// Package classifier provides the pluggable capability set that turns raw
// benchmark output into detection verdicts, and the registry that resolves
// classifiers by name.
//
// Two families implement Classifier:
//   - Rules, compiled from a declarative definition file (YAML, JSON or CUE).
//   - Built-in Go types such as Example, registered by name.
//
// Every capability is total and side-effect free: unparseable or unexpected
// text yields "not detected", never a panic.
package classifier

import "sort"

// Classifier detects events in one test's output text and classifies it.
type Classifier interface {
	// Name is the unique lowercase benchmark name.
	Name() string

	// Trap returns the trap cause code when a trap is detected.
	Trap(text string) (int, bool)

	// TrapAddress returns the faulting address, when present.
	TrapAddress(text string) (string, bool)

	// TrapValue returns the trap value, when present.
	TrapValue(text string) (string, bool)

	Halt(text string) bool
	CommFailure(text string) bool
	ExecFailure(text string) bool
	HWReset(text string) bool
	SDC(text string) bool

	// Result returns 0 for passed, 1 for failed and 2 for outlier.
	// Any other value is treated as outlier.
	Result(text string) int
}

// Constructor creates a built-in classifier.
type Constructor func() Classifier

var builtins = map[string]Constructor{
	ExampleName: func() Classifier { return Example{} },
}

// Builtin returns the constructor of a built-in classifier.
func Builtin(name string) (Constructor, bool) {
	ctor, ok := builtins[name]
	return ctor, ok
}

// BuiltinNames returns the names of all built-in classifiers, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
