package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tollsimy/rapid/internal/diag"
	"github.com/tollsimy/rapid/internal/reconcile"
	"github.com/tollsimy/rapid/internal/record"
)

// Import describes one imported batch of records.
type Import struct {
	BatchID    string    `json:"batch_id"`
	Source     string    `json:"source"`
	Benchmark  string    `json:"benchmark"`
	Records    int       `json:"records"`
	ImportedAt time.Time `json:"imported_at"`
}

// BenchmarkName derives the benchmark of a result file: its base name up to
// the first underscore.
func BenchmarkName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "_"); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImportFile reads a result file and imports its entries under the
// benchmark named by the file. Entries lacking required fields are
// completed with their defaults and reported.
func (s *Store) ImportFile(ctx context.Context, path string) (Import, diag.List, error) {
	doc, err := record.ReadDocument(path)
	if err != nil {
		return Import{}, nil, fmt.Errorf("import %s: %w", path, err)
	}

	benchmark := BenchmarkName(path)
	var diags diag.List
	records := make([]record.TestRecord, 0, doc.Len())
	for _, id := range doc.IDs {
		r, d := reconcile.Complete(id, record.DecodeEntry(doc.Entries[id]))
		diags.Extend(d)
		r.Benchmark = benchmark
		records = append(records, r)
	}

	imp, err := s.ImportRecords(ctx, benchmark, path, records)
	if err != nil {
		return Import{}, diags, err
	}
	return imp, diags, nil
}

// ImportRecords writes records under benchmark in a single transaction.
// A record whose (benchmark, test_id) already exists replaces the stored
// one, including its status and events.
func (s *Store) ImportRecords(ctx context.Context, benchmark, source string, records []record.TestRecord) (Import, error) {
	imp := Import{
		BatchID:    uuid.Must(uuid.NewV7()).String(),
		Source:     source,
		Benchmark:  benchmark,
		Records:    len(records),
		ImportedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, fmt.Errorf("import records: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO imports (batch_id, source, benchmark, records, imported_at)
		VALUES (?, ?, ?, ?, ?)
	`, imp.BatchID, imp.Source, imp.Benchmark, imp.Records, imp.ImportedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Import{}, fmt.Errorf("import records: %w", err)
	}

	// seq continues after the benchmark's stored records so several files
	// of one benchmark read back in import order.
	var base int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), -1) + 1 FROM tests WHERE benchmark = ?", benchmark).Scan(&base); err != nil {
		return Import{}, fmt.Errorf("import records: next seq: %w", err)
	}

	for i, r := range records {
		if err := writeRecord(ctx, tx, benchmark, imp.BatchID, base+i, r); err != nil {
			return Import{}, fmt.Errorf("import records: test %s: %w", r.TestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Import{}, fmt.Errorf("import records: commit: %w", err)
	}
	return imp, nil
}

func writeRecord(ctx context.Context, tx *sql.Tx, benchmark, batchID string, seq int, r record.TestRecord) error {
	// Deleting the test row cascades to status and every event table.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM tests WHERE benchmark = ? AND test_id = ?", benchmark, r.TestID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	var bit sql.NullInt64
	if r.BitPosition != nil {
		bit = sql.NullInt64{Int64: int64(*r.BitPosition), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tests (benchmark, test_id, seq, bit_position, args, output, needs_manual_check, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, benchmark, r.TestID, seq, bit, r.Args, r.Output, r.NeedsManualCheck, batchID)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO status (benchmark, test_id, class, SDC) VALUES (?, ?, ?, ?)",
		benchmark, r.TestID, string(r.Status.Class), r.Status.SDC)
	if err != nil {
		return fmt.Errorf("insert status: %w", err)
	}

	for _, e := range r.Status.Normalize().Events {
		if err := writeEvent(ctx, tx, benchmark, r.TestID, e); err != nil {
			return err
		}
	}
	return nil
}

// eventTables maps non-trap event kinds to their table.
var eventTables = map[record.EventKind]string{
	record.EventHalt:        "halts",
	record.EventCommFailure: "comm_failure",
	record.EventExecFailure: "exec_failure",
	record.EventHWReset:     "hw_resets",
}

func writeEvent(ctx context.Context, tx *sql.Tx, benchmark, testID string, e record.Event) error {
	if e.Kind == record.EventTrap {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO traps (benchmark, test_id, scause, sepc, stval) VALUES (?, ?, ?, ?, ?)",
			benchmark, testID, record.FormatCause(e.Scause), nullString(e.Sepc), nullString(e.Stval))
		if err != nil {
			return fmt.Errorf("insert trap: %w", err)
		}
		return nil
	}

	table, ok := eventTables[e.Kind]
	if !ok {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" (benchmark, test_id) VALUES (?, ?)", benchmark, testID)
	if err != nil {
		return fmt.Errorf("insert %s: %w", e.Kind, err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
