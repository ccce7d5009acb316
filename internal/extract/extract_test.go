package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/logparse"
	"github.com/tollsimy/rapid/internal/record"
)

// fixed reports whatever its fields say, regardless of text.
type fixed struct {
	trap                           *int
	sepc, stval                    string
	halt, comm, exec, hwReset, sdc bool
	result                         int
}

func (f fixed) Name() string { return "fixed" }
func (f fixed) Trap(string) (int, bool) {
	if f.trap == nil {
		return 0, false
	}
	return *f.trap, true
}
func (f fixed) TrapAddress(string) (string, bool) { return f.sepc, f.sepc != "" }
func (f fixed) TrapValue(string) (string, bool)   { return f.stval, f.stval != "" }
func (f fixed) Halt(string) bool                  { return f.halt }
func (f fixed) CommFailure(string) bool           { return f.comm }
func (f fixed) ExecFailure(string) bool           { return f.exec }
func (f fixed) HWReset(string) bool               { return f.hwReset }
func (f fixed) SDC(string) bool                   { return f.sdc }
func (f fixed) Result(string) int                 { return f.result }

var _ classifier.Classifier = fixed{}

func TestBuildStatus_Success(t *testing.T) {
	s := BuildStatus(classifier.Example{}, "SUCCESS")

	assert.Equal(t, record.ClassPassed, s.Class)
	assert.False(t, s.SDC)
	assert.Empty(t, s.Events)
	assert.NotNil(t, s.Events)
}

func TestBuildStatus_TrapIndependentOfClass(t *testing.T) {
	two := 2
	s := BuildStatus(fixed{trap: &two, result: 0}, "")

	assert.Equal(t, record.ClassPassed, s.Class)
	require.Len(t, s.Events, 1)
	assert.Equal(t, record.EventTrap, s.Events[0].Kind)
	assert.Equal(t, 2, s.Events[0].Scause)
	assert.Nil(t, s.Events[0].Sepc)
	assert.Nil(t, s.Events[0].Stval)
}

func TestBuildStatus_EventOrder(t *testing.T) {
	zero := 0
	s := BuildStatus(fixed{
		trap: &zero, sepc: "0x80000000", stval: "0x0",
		halt: true, comm: true, exec: true, hwReset: true, sdc: true,
		result: 1,
	}, "")

	kinds := make([]record.EventKind, 0, len(s.Events))
	for _, e := range s.Events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, record.EventKinds, kinds)
	assert.Equal(t, record.ClassFailed, s.Class)
	assert.True(t, s.SDC)
	assert.Equal(t, "0x80000000", *s.Events[0].Sepc)
}

func TestBuildStatus_UnknownResultIsOutlier(t *testing.T) {
	assert.Equal(t, record.ClassOutlier, BuildStatus(fixed{result: 2}, "").Class)
	assert.Equal(t, record.ClassOutlier, BuildStatus(fixed{result: -1}, "").Class)
	assert.Equal(t, record.ClassOutlier, BuildStatus(fixed{result: 42}, "").Class)
}

func TestBuildStatus_Deterministic(t *testing.T) {
	text := "trap: scause 0xd sepc=0x1 stval=0x2\ntimed out\nINCORRECT_RESULT"
	a := BuildStatus(classifier.Example{}, text)
	b := BuildStatus(classifier.Example{}, text)
	assert.Equal(t, a, b)
	assert.Equal(t, record.ClassFailed, a.Class)
	assert.True(t, a.HasEvent(record.EventTrap))
	assert.True(t, a.HasEvent(record.EventHalt))
}

func TestBuildRecord(t *testing.T) {
	r := BuildRecord(logparse.Block{
		Name:       "matmul_3",
		Benchmark:  "matmul",
		Classifier: classifier.Example{},
		Args:       "-n 2",
		Output:     "ERROR",
	})

	assert.Equal(t, "matmul_3", r.TestID)
	assert.Equal(t, "-n 2", r.Args)
	assert.Equal(t, record.ClassFailed, r.Status.Class)
	assert.False(t, r.NeedsManualCheck)
}
