package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_ExampleBasic(t *testing.T) {
	// Regenerate with:
	//   go test ./internal/harness -run TestRunWithGolden_ExampleBasic -update
	result, err := RunWithGolden(t, loadScenario(t, "example_basic"))
	require.NoError(t, err)
	require.True(t, result.Pass)
}

func TestAssertGolden_NoDocument(t *testing.T) {
	err := AssertGolden(t, "missing", NewResult())
	require.Error(t, err)
}
