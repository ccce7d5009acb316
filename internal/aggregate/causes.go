package aggregate

import (
	"fmt"
	"sort"

	"github.com/tollsimy/rapid/internal/record"
)

// CauseNames maps trap cause codes to descriptive names. Values are never
// modified in place; With returns an extended copy.
type CauseNames struct {
	names map[int]string
}

// U74MC returns the scause names of the SiFive U74-MC core.
func U74MC() CauseNames {
	return CauseNames{names: map[int]string{
		0x0: "Instruction address misaligned",
		0x1: "Instruction access fault",
		0x2: "Illegal instruction",
		0x3: "Breakpoint",
		0x4: "Reserved (0x4)",
		0x5: "Load access fault",
		0x6: "Store/AMO address misaligned",
		0x7: "Store/AMO access fault",
		0x8: "Environment call from U-mode",
		0x9: "Reserved (0x9)",
		0xA: "Reserved (0xA)",
		0xB: "Reserved (0xB)",
		0xC: "Instruction page fault",
		0xD: "Load page fault",
		0xE: "Reserved (0xE)",
		0xF: "Store/AMO page fault",
	}}
}

// With returns a copy of t that also names code.
func (t CauseNames) With(code int, name string) CauseNames {
	names := make(map[int]string, len(t.names)+1)
	for k, v := range t.names {
		names[k] = v
	}
	names[code] = name
	return CauseNames{names: names}
}

// Name returns the name of code. Unknown exceptions are "Reserved (0x..)"
// and unknown causes with the interrupt bit set are "Interrupt (0x..)".
func (t CauseNames) Name(code int) string {
	if name, ok := t.names[code]; ok {
		return name
	}
	if code < 0 {
		return fmt.Sprintf("Interrupt (%s)", record.FormatCause(code))
	}
	return fmt.Sprintf("Reserved (%s)", record.FormatCause(code))
}

// Codes returns the named codes in ascending order.
func (t CauseNames) Codes() []int {
	codes := make([]int, 0, len(t.names))
	for code := range t.names {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}
