// Package pushdown rewrites logical plans so that as much of each plan as
// possible runs inside the store as SQL.
//
// ALGORITHM:
//
// Compile works in two passes over the plan:
//
//  1. Bottom-up: every operator is handed to the relation builder together
//     with the relations already built for its children. Scans resolve
//     their connection and store version through the catalog. An operator
//     whose inputs were not all built, or that the builder rejects, is a
//     fallback boundary.
//  2. Top-down: the highest built operator of each branch is replaced by a
//     plan.Pushed node carrying its relation, annotated with a read mode.
//     Everything above it stays with the host.
//
// Each operator moves through NotVisited → Translating → one of
// FullyPushed, PartiallyPushed or NotPushed, and every final state is
// reported as a Decision.
//
// FAILURE SEMANTICS:
//
// Untranslatable constructs never fail a compilation; they only move the
// fallback boundary. Compile returns an error only for bad input (unknown
// tables, contradictory connection metadata, malformed plans) and for
// internal inconsistencies, both as *CompileError.
//
// DETERMINISM:
//
// Derived table aliases are derived from pre-order positions and no output
// depends on map iteration order, so compiling the same plan twice yields
// byte-identical SQL.
package pushdown
