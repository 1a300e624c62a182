package sqlgen

import (
	"fmt"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/plan"
)

var rankingFuncs = map[string]struct {
	sql       string
	construct dialect.Construct
}{
	"row_number":   {"ROW_NUMBER", dialect.WindowBasic},
	"rank":         {"RANK", dialect.WindowBasic},
	"dense_rank":   {"DENSE_RANK", dialect.WindowBasic},
	"percent_rank": {"PERCENT_RANK", dialect.WindowPercentile},
	"cume_dist":    {"CUME_DIST", dialect.WindowPercentile},
}

func (t *Translator) window(w *plan.WindowCall, sc Scope) (Fragment, error) {
	if err := t.require(dialect.WindowBasic); err != nil {
		return Fragment{}, err
	}

	var (
		head Fragment
		err  error
	)
	switch {
	case w.Agg != nil:
		if w.Agg.Distinct {
			return Fragment{}, unsupported(KindExpression, "distinct aggregate over a window")
		}
		head, err = t.aggregate(w.Agg, sc)
	default:
		head, err = t.windowFunc(w, sc)
	}
	if err != nil {
		return Fragment{}, err
	}

	over, err := t.over(w, sc)
	if err != nil {
		return Fragment{}, err
	}
	var out sqlWriter
	out.frag(head)
	out.write(" OVER (")
	out.frag(over)
	out.write(")")
	return out.fragment(), nil
}

func (t *Translator) windowFunc(w *plan.WindowCall, sc Scope) (Fragment, error) {
	if r, ok := rankingFuncs[w.Func]; ok {
		if err := t.require(r.construct); err != nil {
			return Fragment{}, err
		}
		if len(w.Args) != 0 || w.Spec.Frame != nil {
			return Fragment{}, unsupported(KindExpression, "%s with arguments or frame", w.Func)
		}
		return raw(r.sql + "()"), nil
	}

	switch w.Func {
	case "ntile":
		if err := t.require(dialect.WindowNtile); err != nil {
			return Fragment{}, err
		}
		n, ok := singleIntLiteral(w.Args)
		if !ok || n <= 0 {
			return Fragment{}, unsupported(KindExpression, "ntile needs a positive literal")
		}
		return raw(fmt.Sprintf("NTILE(%d)", n)), nil
	case "lag", "lead":
		if err := t.require(dialect.WindowOffset); err != nil {
			return Fragment{}, err
		}
		return t.offsetFunc(w, sc)
	}
	return Fragment{}, unsupported(KindExpression, "window function %s", w.Func)
}

// offsetFunc renders LAG/LEAD(x[, n[, default]]). The offset must be a
// literal and is inlined.
func (t *Translator) offsetFunc(w *plan.WindowCall, sc Scope) (Fragment, error) {
	if len(w.Args) < 1 || len(w.Args) > 3 {
		return Fragment{}, unsupported(KindExpression, "%s with %d arguments", w.Func, len(w.Args))
	}
	x, err := t.Expr(w.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	name := "LAG("
	if w.Func == "lead" {
		name = "LEAD("
	}
	var out sqlWriter
	out.write(name)
	out.frag(x)
	if len(w.Args) >= 2 {
		n, ok := intLiteral(w.Args[1])
		if !ok || n < 0 {
			return Fragment{}, unsupported(KindExpression, "%s needs a non-negative literal offset", w.Func)
		}
		out.writef(", %d", n)
	}
	if len(w.Args) == 3 {
		def, err := t.Expr(w.Args[2], sc)
		if err != nil {
			return Fragment{}, err
		}
		out.write(", ")
		out.frag(def)
	}
	out.write(")")
	return out.fragment(), nil
}

// over renders the inside of OVER ( ... ).
func (t *Translator) over(w *plan.WindowCall, sc Scope) (Fragment, error) {
	var out sqlWriter
	if len(w.Spec.PartitionBy) > 0 {
		parts := make([]Fragment, len(w.Spec.PartitionBy))
		for i, p := range w.Spec.PartitionBy {
			f, err := t.comparable(p, sc)
			if err != nil {
				return Fragment{}, err
			}
			parts[i] = f
		}
		out.write("PARTITION BY ")
		out.join(parts, ", ")
	}
	if len(w.Spec.OrderBy) > 0 {
		keys, err := t.OrderBy(w.Spec.OrderBy, sc)
		if err != nil {
			return Fragment{}, err
		}
		if len(w.Spec.PartitionBy) > 0 {
			out.write(" ")
		}
		out.write("ORDER BY ")
		out.frag(keys)
	}
	frame, err := t.frame(w.Spec.Frame)
	if err != nil {
		return Fragment{}, err
	}
	if frame != "" {
		if len(w.Spec.PartitionBy) > 0 || len(w.Spec.OrderBy) > 0 {
			out.write(" ")
		}
		out.write(frame)
	}
	return out.fragment(), nil
}

// frame renders an explicit frame, or "" for the default one. RANGE frames
// are only accepted in their default form since the store's RANGE offsets
// do not follow the host's semantics.
func (t *Translator) frame(f *plan.Frame) (string, error) {
	if f == nil {
		return "", nil
	}
	if f.Kind == plan.FrameRange {
		if f.Start.Kind == plan.UnboundedPreceding && f.End.Kind == plan.CurrentRow {
			return "", nil
		}
		return "", unsupported(KindExpression, "range frame between %s and %s", f.Start, f.End)
	}
	if err := t.require(dialect.WindowRowsFrame); err != nil {
		return "", err
	}
	start, err := frameBound(f.Start)
	if err != nil {
		return "", err
	}
	end, err := frameBound(f.End)
	if err != nil {
		return "", err
	}
	return "ROWS BETWEEN " + start + " AND " + end, nil
}

func frameBound(b plan.Bound) (string, error) {
	switch b.Kind {
	case plan.UnboundedPreceding:
		return "UNBOUNDED PRECEDING", nil
	case plan.CurrentRow:
		return "CURRENT ROW", nil
	case plan.UnboundedFollowing:
		return "UNBOUNDED FOLLOWING", nil
	case plan.Preceding, plan.Following:
		n, ok := intLiteral(b.Offset)
		if !ok || n < 0 {
			return "", unsupported(KindExpression, "frame offset %s", b)
		}
		if b.Kind == plan.Preceding {
			return fmt.Sprintf("%d PRECEDING", n), nil
		}
		return fmt.Sprintf("%d FOLLOWING", n), nil
	}
	return "", unsupported(KindExpression, "frame bound %s", b)
}

func singleIntLiteral(args []plan.Expr) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	return intLiteral(args[0])
}
