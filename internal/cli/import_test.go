package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollsimy/rapid/internal/store"
)

func TestImportResultsDir(t *testing.T) {
	ws := newWorkspace(t)
	_, err := execute(t, "parse",
		"--log-file", ws.logFile(),
		"--inject-file", ws.specFile(),
		"-f", ws.format,
		"--results-dir", ws.results)
	require.NoError(t, err)

	out, err := execute(t, "import", "--db", ws.db, "--results-dir", ws.results)
	require.NoError(t, err)
	assert.Contains(t, out, "-> example (3 records)")
	assert.Contains(t, out, "Imported 1 of 1 files")

	st, err := store.Open(ws.db)
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ReadRecords(context.Background(), "example")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestImportCreateDBReplacesContent(t *testing.T) {
	ws := newWorkspace(t)
	writeFile(t, filepath.Join(ws.results, "crc_results.json"), `{"crc_1": {"status": {"class": "passed"}}}`)
	writeFile(t, filepath.Join(ws.dir, "other", "matmul_results.json"), `{"matmul_1": {"status": {"class": "failed"}}}`)

	_, err := execute(t, "import", "--db", ws.db, "--results-dir", ws.results)
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "import", "--db", ws.db,
		"--results-file", filepath.Join(ws.dir, "other", "matmul_results.json"), "--create-db")
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.EqualValues(t, 1, data["imported"])

	st, err := store.Open(ws.db)
	require.NoError(t, err)
	defer st.Close()

	names, err := st.Benchmarks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"matmul"}, names)
}

func TestImportNothingImported(t *testing.T) {
	ws := newWorkspace(t)
	writeFile(t, filepath.Join(ws.results, "crc_results.json"), `{not json`)

	out, err := execute(t, "import", "--db", ws.db, "--results-dir", ws.results)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ ")
}

func TestImportMissingInputs(t *testing.T) {
	ws := newWorkspace(t)

	_, err := execute(t, "import", "--db", ws.db, "--results-dir", filepath.Join(ws.dir, "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "import", "--db", ws.db, "--results-file", filepath.Join(ws.dir, "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	empty := filepath.Join(ws.dir, "empty")
	writeFile(t, filepath.Join(empty, "notes.txt"), "")
	_, err = execute(t, "import", "--db", ws.db, "--results-dir", empty)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
