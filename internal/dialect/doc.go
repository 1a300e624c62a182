// Package dialect models the target store's SQL dialect: its version, the
// version-gated capability table, and identifier rules.
//
// All feature gating goes through Capabilities.Supports. Translation code
// never compares versions directly; it names the Construct it needs and the
// capability table answers. Adding a gated feature is one table entry.
package dialect
