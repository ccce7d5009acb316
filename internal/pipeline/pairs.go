package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// minPairScore is the score a specification must exceed to be paired.
const minPairScore = 3

// File extensions considered in directory mode.
const (
	LogExt  = ".txt"
	SpecExt = ".json"
)

// ListFiles returns the regular files of dir with extension ext, sorted.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FindPairs lists the logs of logDir and the specifications of specDir and
// pairs them with MatchPairs.
func FindPairs(logDir, specDir string) ([]Pair, error) {
	logs, err := ListFiles(logDir, LogExt)
	if err != nil {
		return nil, err
	}
	specs, err := ListFiles(specDir, SpecExt)
	if err != nil {
		return nil, err
	}
	return MatchPairs(logs, specs), nil
}

// MatchPairs pairs every log with the specification whose name shares the
// most text with it. The score of a candidate is the total length of the
// underscore-separated parts of the log name found in the specification
// name. The first best candidate wins ties; logs whose best score does not
// exceed the minimum are left unpaired.
func MatchPairs(logs, specs []string) []Pair {
	var pairs []Pair
	for _, log := range logs {
		logName := stem(log)
		best, bestScore := "", 0
		for _, spec := range specs {
			if score := pairScore(logName, stem(spec)); score > bestScore {
				best, bestScore = spec, score
			}
		}
		if best != "" && bestScore > minPairScore {
			pairs = append(pairs, Pair{Log: log, Spec: best})
		}
	}
	return pairs
}

func pairScore(logName, specName string) int {
	score := 0
	for _, part := range strings.Split(logName, "_") {
		if strings.Contains(specName, part) {
			score += len(part)
		}
	}
	return score
}

// stem is the base name up to the first dot.
func stem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}
