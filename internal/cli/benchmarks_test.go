package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmarksList(t *testing.T) {
	ws := newWorkspace(t)
	parseAndImport(t, ws)

	out, err := execute(t, "benchmarks", "--db", ws.db)
	require.NoError(t, err)
	assert.Contains(t, out, "example")
	assert.Contains(t, out, "3 tests")
	assert.NotContains(t, out, "Imports:")
}

func TestBenchmarksImportsJSON(t *testing.T) {
	ws := newWorkspace(t)
	parseAndImport(t, ws)

	out, err := execute(t, "--format", "json", "benchmarks", "--db", ws.db, "--imports")
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	benchmarks := data["benchmarks"].([]any)
	require.Len(t, benchmarks, 1)
	assert.Equal(t, "example", benchmarks[0].(map[string]any)["benchmark"])

	imports := data["imports"].([]any)
	require.Len(t, imports, 1)
	imp := imports[0].(map[string]any)
	assert.Equal(t, ws.resultsFile(), imp["source"])
	assert.EqualValues(t, 3, imp["records"])
	assert.NotEmpty(t, imp["batch_id"])
}

func TestBenchmarksMissingDatabase(t *testing.T) {
	_, err := execute(t, "benchmarks", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
