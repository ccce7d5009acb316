package store

import (
	"path/filepath"
	"testing"

	"github.com/tollsimy/rapid/internal/record"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRecordSpec describes a record with only the fields a test cares about.
type testRecordSpec struct {
	id     string
	class  record.Class
	sdc    bool
	manual bool
	bit    *int
	events []record.Event
}

type testRecordSpecs []testRecordSpec

func (specs testRecordSpecs) records() []record.TestRecord {
	out := make([]record.TestRecord, 0, len(specs))
	for _, sp := range specs {
		class := sp.class
		if class == "" {
			class = record.ClassPassed
		}
		events := sp.events
		if events == nil {
			events = []record.Event{}
		}
		out = append(out, record.TestRecord{
			TestID:           sp.id,
			BitPosition:      sp.bit,
			Args:             "-n 1",
			Output:           "output of " + sp.id,
			Status:           record.Status{Class: class, SDC: sp.sdc, Events: events},
			NeedsManualCheck: sp.manual,
		})
	}
	return out
}

func intPtr(v int) *int { return &v }
