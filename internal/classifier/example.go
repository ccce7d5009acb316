package classifier

import (
	"regexp"
	"strings"

	"github.com/tollsimy/rapid/internal/record"
)

// ExampleName is the registry name of Example.
const ExampleName = "example"

var (
	exampleScause  = regexp.MustCompile(`scause\s+(0x[0-9a-fA-F]+)`)
	exampleSepc    = regexp.MustCompile(`sepc=(0x[0-9a-fA-F]+)`)
	exampleStval   = regexp.MustCompile(`stval=(0x[0-9a-fA-F]+)`)
	exampleGarbled = regexp.MustCompile(`[^\x20-\x7E\n\r\t]`)
	exampleEscaped = regexp.MustCompile(`(ï¿½|\\x[0-9a-fA-F]{2})`)
)

// Example is the reference classifier for benchmarks that print SUCCESS or
// ERROR and report traps as "trap ... scause 0x.. sepc=0x.. stval=0x..".
type Example struct{}

func (Example) Name() string { return ExampleName }

func (Example) Trap(text string) (int, bool) {
	if !strings.Contains(text, "trap") {
		return 0, false
	}
	m := exampleScause.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	code, err := record.ParseCause(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

func (Example) TrapAddress(text string) (string, bool) {
	return firstGroup(exampleSepc, text)
}

func (Example) TrapValue(text string) (string, bool) {
	return firstGroup(exampleStval, text)
}

func (Example) Halt(text string) bool {
	return strings.Contains(text, "timed out")
}

// CommFailure fires on bytes outside printable ASCII, including the
// replacement character left by lossy decoding.
func (Example) CommFailure(text string) bool {
	return exampleGarbled.MatchString(text) || exampleEscaped.MatchString(text)
}

func (Example) ExecFailure(text string) bool {
	return strings.Contains(text, "exit status=1")
}

func (Example) HWReset(text string) bool {
	return strings.Contains(text, "hw-reset")
}

func (Example) SDC(text string) bool {
	return strings.Contains(text, "INCORRECT_RESULT")
}

func (e Example) Result(text string) int {
	switch {
	case strings.Contains(text, "SUCCESS"):
		return record.ResultPassed
	case strings.Contains(text, "ERROR"):
		return record.ResultFailed
	case e.Halt(text), e.CommFailure(text):
		return record.ResultFailed
	}
	return record.ResultOutlier
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}
