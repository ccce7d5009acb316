package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiersList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "matmul.yaml"), `name: MatMul
trap: {cause: 'scause\s+(0x[0-9a-fA-F]+)'}
trap_address: ''
trap_value: ''
halt: {contains: ["timed out"]}
comm_failure: {}
exec_failure: {}
hw_reset: {}
sdc: {contains: ["INCORRECT_RESULT"]}
result:
  rules:
    - {contains: ["SUCCESS"], class: passed}
`)
	writeFile(t, filepath.Join(dir, "broken.yaml"), "name: broken\n")

	out, err := execute(t, "classifiers", "--classifier-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ example (builtin)")
	assert.Contains(t, out, "✓ matmul\n")
	assert.Contains(t, out, "✗ ")
}

func TestClassifiersDetect(t *testing.T) {
	out, err := execute(t, "--format", "json", "classifiers", "--detect", "inject/example_bitflips.json")
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "example", data["detected"])

	_, err = execute(t, "classifiers", "--detect", "inject/coremark.json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
