// Package ir provides the host engine's type and value representation used
// throughout the pushdown compiler.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the type layer at the
// bottom of the dependency graph with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed interface; only types in this package implement it
//   - DataType is a comparable value type (usable as map key, compared with ==)
//   - Decimal values use shopspring/decimal, never float64
//   - Dates and timestamps are UTC; no local time zone ever leaks into SQL
package ir
