// Package harness runs compiler scenarios end to end.
//
// A scenario names a CUE catalog directory and a YAML plan file, compiles
// the plan and checks the outcome: the root status, per-operator decisions,
// the pushed SQL (pinned in golden files) and, for fully pushed plans, the
// rows the SQL returns against an in-memory SQLite copy of the data.
//
// # Scenario Format
//
//	name: filter_project
//	description: "A filter and projection collapse into one statement"
//	catalog: ../catalog
//	plan: ../plans/filter_project.yaml
//	options:
//	  enable_parallel_read: true
//	data:
//	  users:
//	    - [1, 25, 1, 10.5, "ann"]
//	expect:
//	  status: fully_pushed
//	  relations: 1
//	  read_modes: [parallel]
//	  decisions:
//	    - {path: "0", state: fully_pushed}
//	  rows:
//	    - [2, 42]
//
// Paths are relative to the scenario file. A scenario expects either a
// status or an error substring, never both.
//
// # Equivalence
//
// When a scenario lists rows, the single pushed relation is executed
// against SQLite and compared with the expected rows. Numbers compare
// within Tolerance. Rows compare in order only when the relation is
// ordered. SQLite stands in for the store; the store's CAST(x AS BINARY)
// is run as CAST(x AS BLOB) so string keys still compare byte-wise.
//
// # Golden Files
//
// Every scenario that compiles has its status and pushed relations pinned
// in testdata/golden/{name}.golden. To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
