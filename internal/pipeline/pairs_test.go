package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPairs(t *testing.T) {
	tests := []struct {
		name  string
		logs  []string
		specs []string
		want  []Pair
	}{
		{
			name:  "best match",
			logs:  []string{"logs/matmul_run.txt"},
			specs: []string{"inject/crc.json", "inject/matmul_bitflips.json"},
			want:  []Pair{{Log: "logs/matmul_run.txt", Spec: "inject/matmul_bitflips.json"}},
		},
		{
			name:  "below threshold",
			logs:  []string{"logs/crc.txt"},
			specs: []string{"inject/crc_bitflips.json"},
			want:  nil,
		},
		{
			name:  "first wins ties",
			logs:  []string{"logs/coremark_x.txt"},
			specs: []string{"inject/coremark_a.json", "inject/coremark_b.json"},
			want:  []Pair{{Log: "logs/coremark_x.txt", Spec: "inject/coremark_a.json"}},
		},
		{
			name:  "parts add up",
			logs:  []string{"logs/crc_big_run.txt"},
			specs: []string{"inject/crc.json", "inject/crc_big.json"},
			want:  []Pair{{Log: "logs/crc_big_run.txt", Spec: "inject/crc_big.json"}},
		},
		{
			name:  "no specs",
			logs:  []string{"logs/matmul.txt"},
			specs: nil,
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPairs(tt.logs, tt.specs))
		})
	}
}

func TestFindPairs(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	specDir := filepath.Join(dir, "inject")
	for _, p := range []string{
		filepath.Join(logDir, "matmul_run.txt"),
		filepath.Join(logDir, "notes.md"),
		filepath.Join(specDir, "matmul_bitflips.json"),
		filepath.Join(specDir, "matmul_bitflips.yaml"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	}

	pairs, err := FindPairs(logDir, specDir)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{
		Log:  filepath.Join(logDir, "matmul_run.txt"),
		Spec: filepath.Join(specDir, "matmul_bitflips.json"),
	}}, pairs)

	_, err = FindPairs(filepath.Join(dir, "missing"), specDir)
	assert.Error(t, err)
}
