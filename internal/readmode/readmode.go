// Package readmode decides how the host reads a pushed relation.
//
// A relation may be read as parallel partition streams only when no part
// of its SQL depends on seeing the whole result at once: no ORDER BY on the
// outermost SELECT, no LIMIT or OFFSET anywhere, and no aggregate without
// GROUP BY anywhere. Each partition would otherwise apply the LIMIT or
// produce its own single aggregate row.
package readmode

import "github.com/roach88/pushdown/internal/plan"

// Resolve returns the read mode for a relation with the given properties.
// It is a pure function of its inputs.
func Resolve(p plan.Props, parallelEnabled bool) plan.ReadMode {
	if reason := SingleReason(p, parallelEnabled); reason != "" {
		return plan.ReadSingle
	}
	return plan.ReadParallel
}

// SingleReason explains why a relation must be read as one stream, or
// returns "" when it may be read in parallel.
func SingleReason(p plan.Props, parallelEnabled bool) string {
	switch {
	case !parallelEnabled:
		return "parallel reads disabled"
	case p.Ordered:
		return "ordered"
	case p.Limited:
		return "limit"
	case p.GlobalAggregate:
		return "aggregate without grouping"
	}
	return ""
}

// Annotate returns a copy of r with its read mode resolved. r is not
// modified.
func Annotate(r *plan.Relation, parallelEnabled bool) *plan.Relation {
	out := *r
	out.ReadMode = Resolve(r.Props, parallelEnabled)
	return &out
}
