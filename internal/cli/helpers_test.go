package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const exampleLog = `boot noise
Starting test inject/example/example_1 -n 2
SUCCESS
Starting test inject/example/example_2
trap scause 0xd sepc=0x8000
ERROR
`

const exampleSpec = `{
  "example_1": {"bit_position": 1},
  "example_2": {"bit_position": 2},
  "example_3": {"bit_position": 3}
}`

const exampleFormat = `marker: "Starting test"
test_number_pattern: '_([0-9A-Za-z]+)(?:\s+(.*))?'
benchmark_pattern: 'inject/([a-zA-Z0-9_]+)/'
test_name_format: "{benchmark_type}_{test_num}"
`

// workspace is a temporary campaign layout: logs/, inject/, a format file
// and the paths results and database are written to.
type workspace struct {
	dir     string
	logs    string
	inject  string
	format  string
	results string
	db      string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:     dir,
		logs:    filepath.Join(dir, "logs"),
		inject:  filepath.Join(dir, "inject"),
		format:  filepath.Join(dir, "format.yaml"),
		results: filepath.Join(dir, "results"),
		db:      filepath.Join(dir, "fault_analysis.db"),
	}
	writeFile(t, ws.format, exampleFormat)
	writeFile(t, filepath.Join(ws.logs, "example_run.txt"), exampleLog)
	writeFile(t, filepath.Join(ws.inject, "example_inject.json"), exampleSpec)
	return ws
}

func (ws workspace) logFile() string  { return filepath.Join(ws.logs, "example_run.txt") }
func (ws workspace) specFile() string { return filepath.Join(ws.inject, "example_inject.json") }

func (ws workspace) resultsFile() string {
	return filepath.Join(ws.results, "example_inject_results.json")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse decodes a JSON CLI response with a generic payload.
func decodeResponse(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

// parseAndImport runs parse and import over the default workspace.
func parseAndImport(t *testing.T, ws workspace) {
	t.Helper()
	_, err := execute(t, "parse",
		"--log-file", ws.logFile(),
		"--inject-file", ws.specFile(),
		"--log-format", ws.format,
		"--results-dir", ws.results)
	require.NoError(t, err)

	_, err = execute(t, "import", "--db", ws.db, "--results-dir", ws.results)
	require.NoError(t, err)
}
