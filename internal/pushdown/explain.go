package pushdown

import (
	"fmt"
	"io"

	"github.com/roach88/pushdown/internal/plan"
	"github.com/roach88/pushdown/internal/readmode"
)

// Explain writes a human-readable report of r: the rewritten plan, every
// pushed relation with its arguments and read mode, and one line per
// operator decision.
//
// Format:
//
//	status: partially_pushed
//
//	plan:
//	[0] Project columns=[...]
//	└── [1] Pushed relation=3f2a... mode=parallel
//	        sql: SELECT ...
//
//	relations:
//	  3f2a... mode=parallel
//	    sql:  SELECT ...
//	    args: [30]
//
//	decisions:
//	  0    partially_pushed  Project columns=[...]  (expression: ...)
//	  0.0  fully_pushed      Filter cond=...
func (r *Result) Explain(w io.Writer, parallelEnabled bool) error {
	ew := &errWriter{w: w}
	ew.printf("status: %s\n\nplan:\n", r.Status)
	if ew.err == nil {
		ew.err = plan.Print(w, r.Plan)
	}

	if len(r.Relations) > 0 {
		ew.printf("\nrelations:\n")
		for _, rel := range r.Relations {
			ew.printf("  %s mode=%s", rel.ID, rel.ReadMode)
			if reason := readmode.SingleReason(rel.Props, parallelEnabled); reason != "" {
				ew.printf(" (%s)", reason)
			}
			ew.printf("\n    sql:  %s\n", rel.SQL)
			if len(rel.Args) > 0 {
				ew.printf("    args: %v\n", rel.Args)
			}
		}
	}

	ew.printf("\ndecisions:\n")
	width := 0
	for _, d := range r.Decisions {
		width = max(width, len(d.Path))
	}
	for _, d := range r.Decisions {
		ew.printf("  %-*s  %-16s  %s", width, d.Path, d.State, d.Operator)
		if d.Reason != "" {
			ew.printf("  (%s)", d.Reason)
		}
		ew.printf("\n")
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
