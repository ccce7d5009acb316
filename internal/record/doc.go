// Package record provides the per-test outcome types shared by every stage of
// the pipeline, and the JSON codec for specification and result files.
//
// This package contains type definitions and their wire form only. All other
// internal packages import record; record imports no other internal package.
//
// Key design constraints:
//   - Every Status carries exactly one Class.
//   - Events hold at most one entry per kind, in the canonical kind order
//     trap, halt, comm_failure, exec_failure, hw_reset.
//   - Trap sub-fields serialize as null when unavailable, never absent.
//   - JSON documents keep the member order of the file they were read from.
package record
