package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tollsimy/rapid/internal/record"
)

// BenchmarkStat is the number of stored tests of one benchmark.
type BenchmarkStat struct {
	Benchmark string `json:"benchmark"`
	Tests     int    `json:"tests"`
}

// ReadRecords returns the records of benchmark in import order.
// Events are rebuilt in canonical kind order.
//
// Returns an empty slice (not nil) if the benchmark has no records.
func (s *Store) ReadRecords(ctx context.Context, benchmark string) ([]record.TestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.test_id, t.bit_position, t.args, t.output, t.needs_manual_check,
		       st.class, st.SDC,
		       tr.scause, tr.sepc, tr.stval,
		       h.test_id IS NOT NULL,
		       cf.test_id IS NOT NULL,
		       ef.test_id IS NOT NULL,
		       hw.test_id IS NOT NULL
		FROM tests t
		JOIN status st ON st.benchmark = t.benchmark AND st.test_id = t.test_id
		LEFT JOIN traps tr ON tr.benchmark = t.benchmark AND tr.test_id = t.test_id
		LEFT JOIN halts h ON h.benchmark = t.benchmark AND h.test_id = t.test_id
		LEFT JOIN comm_failure cf ON cf.benchmark = t.benchmark AND cf.test_id = t.test_id
		LEFT JOIN exec_failure ef ON ef.benchmark = t.benchmark AND ef.test_id = t.test_id
		LEFT JOIN hw_resets hw ON hw.benchmark = t.benchmark AND hw.test_id = t.test_id
		WHERE t.benchmark = ?
		ORDER BY t.seq ASC, t.test_id COLLATE BINARY ASC
	`, benchmark)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []record.TestRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		r.Benchmark = benchmark
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (record.TestRecord, error) {
	var (
		r                         record.TestRecord
		bit                       sql.NullInt64
		class                     string
		scause, sepc, stval       sql.NullString
		halt, comm, exec, hwReset bool
	)
	err := rows.Scan(&r.TestID, &bit, &r.Args, &r.Output, &r.NeedsManualCheck,
		&class, &r.Status.SDC,
		&scause, &sepc, &stval,
		&halt, &comm, &exec, &hwReset)
	if err != nil {
		return record.TestRecord{}, fmt.Errorf("scan record: %w", err)
	}

	if bit.Valid {
		pos := int(bit.Int64)
		r.BitPosition = &pos
	}
	c, err := record.ParseClass(class)
	if err != nil {
		return record.TestRecord{}, fmt.Errorf("scan record %s: %w", r.TestID, err)
	}
	r.Status.Class = c

	r.Status.Events = []record.Event{}
	if scause.Valid {
		code, err := record.ParseCause(scause.String)
		if err != nil {
			return record.TestRecord{}, fmt.Errorf("scan record %s: scause %q: %w", r.TestID, scause.String, err)
		}
		r.Status.Events = append(r.Status.Events, record.Trap(code, sepc.String, stval.String))
	}
	flags := []struct {
		set  bool
		kind record.EventKind
	}{
		{halt, record.EventHalt},
		{comm, record.EventCommFailure},
		{exec, record.EventExecFailure},
		{hwReset, record.EventHWReset},
	}
	for _, f := range flags {
		if f.set {
			r.Status.Events = append(r.Status.Events, record.Event{Kind: f.kind})
		}
	}
	r.Status = r.Status.Normalize()
	return r, nil
}

// Benchmarks returns the stored benchmark names in ascending order.
func (s *Store) Benchmarks(ctx context.Context) ([]string, error) {
	stats, err := s.BenchmarkStats(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(stats))
	for i, st := range stats {
		names[i] = st.Benchmark
	}
	return names, nil
}

// BenchmarkStats returns the test count of every stored benchmark, ordered
// by benchmark name.
func (s *Store) BenchmarkStats(ctx context.Context) ([]BenchmarkStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT benchmark, COUNT(*)
		FROM tests
		GROUP BY benchmark
		ORDER BY benchmark COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query benchmark stats: %w", err)
	}
	defer rows.Close()

	stats := []BenchmarkStat{}
	for rows.Next() {
		var st BenchmarkStat
		if err := rows.Scan(&st.Benchmark, &st.Tests); err != nil {
			return nil, fmt.Errorf("scan benchmark stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate benchmark stats: %w", err)
	}
	return stats, nil
}

// ReadImports returns every import batch, oldest first.
func (s *Store) ReadImports(ctx context.Context) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, source, benchmark, records, imported_at
		FROM imports
		ORDER BY batch_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	imports := []Import{}
	for rows.Next() {
		var (
			imp Import
			at  string
		)
		if err := rows.Scan(&imp.BatchID, &imp.Source, &imp.Benchmark, &imp.Records, &at); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imp.ImportedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("scan import %s: %w", imp.BatchID, err)
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return imports, nil
}
