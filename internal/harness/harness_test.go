package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/record"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_ExampleBasic(t *testing.T) {
	result, err := Run(loadScenario(t, "example_basic"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Records, 4)
	ids := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		ids = append(ids, r.TestID)
	}
	assert.Equal(t, []string{"example_1", "example_2", "example_3", "example_4"}, ids)

	// Trap fields survive the store round trip.
	r, ok := result.Record("example_2")
	require.True(t, ok)
	trap, ok := r.Status.Event(record.EventTrap)
	require.True(t, ok)
	assert.Equal(t, 13, trap.Scause)
	require.NotNil(t, trap.Sepc)
	assert.Equal(t, "0x80001000", *trap.Sepc)
	assert.Equal(t, "example", r.Benchmark)
	require.NotNil(t, r.BitPosition)
	assert.Equal(t, 5, *r.BitPosition)
}

func TestRun_ClassifierSwitch(t *testing.T) {
	result, err := Run(loadScenario(t, "classifier_switch"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 3, result.Counts.Total)
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	s := loadScenario(t, "example_basic")
	sdc := true
	s.Assertions = []Assertion{
		{Type: AssertRecord, ID: "example_1", Class: "failed"},
		{Type: AssertRecord, ID: "example_1", SDC: &sdc},
		{Type: AssertRecord, ID: "nope"},
		{Type: AssertCount, Bucket: "passed", Count: 9},
		{Type: AssertBlocks, Count: 1},
		{Type: AssertDiagnostic, Code: string(diag.CodeFieldMissing), Count: 2},
		{Type: AssertConsistent},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "example_1 class = failed")
	assert.Contains(t, result.Errors[1], "example_1 SDC = true")
	assert.Contains(t, result.Errors[2], "not found")
	assert.Contains(t, result.Errors[3], "passed = 9")
	assert.Contains(t, result.Errors[4], "1 blocks")
	assert.Contains(t, result.Errors[5], "FIELD_MISSING")
}

func TestRun_UnknownInitialClassifier(t *testing.T) {
	s := loadScenario(t, "example_basic")
	s.Benchmark = "crc"

	_, err := Run(s)
	require.Error(t, err)
	assert.True(t, diag.IsClassifierNotFound(err))
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "example_basic")

	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, r1.Records, r2.Records)
	assert.Equal(t, r1.Document, r2.Document)
}

func TestRun_AllScenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			for _, msg := range result.Errors {
				t.Error(msg)
			}
		})
	}
}
