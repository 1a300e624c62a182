// Package sqlgen compiles plan operators and expressions to SQL for the
// store.
//
// Two layers:
//
//   - Translator renders a single expression as a Fragment (SQL text with
//     '?' placeholders plus the bound arguments in textual order).
//   - Builder composes relations bottom-up: every operator wraps its
//     already-built children as derived tables and adds its own clause.
//
// Neither layer ever panics on an untranslatable input. Anything the store
// cannot evaluate with exactly the host's semantics comes back as an
// *UnsupportedError, which callers treat as "leave this operator to the
// host".
//
// CRITICAL: values are never interpolated into SQL text. Every literal that
// is not a keyword (NULL, TRUE, FALSE) or a LIMIT/OFFSET count is bound as
// an argument.
package sqlgen
