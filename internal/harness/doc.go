// Package harness runs end-to-end classification scenarios.
//
// A scenario bundles a log, the expected test set and the classifiers needed
// to read it, then asserts on what comes out the other end. Every run goes
// through the same stages as the command line: tokenize, reconcile, write the
// result document, validate it, import it into a fresh in-memory store, read
// it back and aggregate.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: matmul_mixed
//	description: "Traps, timeouts and a missing test"
//	benchmark: matmul
//	classifiers:
//	  - name: matmul
//	    trap: {when: {contains: [trap]}, cause: 'scause\s+(0x[0-9a-f]+)'}
//	    ...
//	spec:
//	  - {id: matmul_1, bit_position: 3}
//	  - {id: matmul_2}
//	log: |
//	  Starting test inject/matmul/matmul_1
//	  SUCCESS
//	assertions:
//	  - type: record
//	    id: matmul_1
//	    class: passed
//	  - type: count
//	    bucket: failed
//	    count: 0
//
// Classifiers are either built-ins (builtins: [example]) or inline
// definitions using the same keys as a classifier definition file.
//
// # Assertion Types
//
//   - record: checks class, events, SDC, manual flag or output of one test
//   - count: checks one aggregate bucket
//   - blocks: checks how many blocks the tokenizer produced
//   - diagnostic: checks how many diagnostics carry a code
//   - consistent: checks that aggregation raised no consistency warning
//
// # Golden Files
//
// RunWithGolden compares the result document against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
