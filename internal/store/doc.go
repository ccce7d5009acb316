// Package store persists reconciled test records in SQLite so results of
// many benchmarks can be queried and re-aggregated later.
//
// Layout:
//   - imports: one row per imported result file (UUIDv7 batch id)
//   - tests: one row per test, keyed by (benchmark, test_id)
//   - status: class and SDC flag of each test
//   - traps, halts, comm_failure, exec_failure, hw_resets: one row per event
//
// Event and status rows cascade with their test row, so re-importing a
// benchmark never leaves stale events behind.
//
// Reads are ordered by the specification position recorded at import time
// (seq), then test id, so aggregation over stored records is deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
