// Package plan provides the logical query plan consumed and produced by the
// pushdown compiler.
//
// ARCHITECTURE:
//
// The plan sits between the host query engine and the SQL generator:
//
//	[host engine] → [plan.Operator tree] → [pushdown] → [rewritten plan]
//	                                            ↓
//	                                     [plan.Relation SQL]
//
// SEALED INTERFACES:
//
// Operator and Expr are sealed interfaces using the marker method pattern.
// Only types in this package can implement them. Consumers translate with
// exhaustive type switches, so adding a variant is a compile-time obligation
// for every consumer rather than a runtime lookup:
//
//	switch op := op.(type) {
//	case *Scan:
//	case *Filter:
//	...
//	default:
//	    // unreachable for well-formed plans
//	}
//
// BINDING:
//
// Column references are bound by ordinal to the input schema of the operator
// that owns the expression (for a Join, the left schema followed by the right
// schema). Names are kept for display and SQL aliasing only, so duplicate
// names across join inputs are unambiguous in the plan.
//
// IMMUTABILITY:
//
// Trees are built once and never mutated. Rewrites construct new nodes with
// WithChildren; unchanged subtrees are shared by reference.
package plan
