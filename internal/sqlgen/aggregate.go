package sqlgen

import (
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

var statisticalAggs = map[string]struct {
	sql       string
	construct dialect.Construct
}{
	"stddev":      {"STDDEV_SAMP", dialect.AggStddev},
	"stddev_samp": {"STDDEV_SAMP", dialect.AggStddev},
	"stddev_pop":  {"STDDEV_POP", dialect.AggStddev},
	"variance":    {"VAR_SAMP", dialect.AggVariance},
	"var_samp":    {"VAR_SAMP", dialect.AggVariance},
	"var_pop":     {"VAR_POP", dialect.AggVariance},
}

var bitAggs = map[string]struct {
	sql       string
	construct dialect.Construct
}{
	"bit_and": {"BIT_AND", dialect.AggBitAnd},
	"bit_or":  {"BIT_OR", dialect.AggBitOr},
	"bit_xor": {"BIT_XOR", dialect.AggBitXor},
}

func (t *Translator) aggregate(a *plan.AggregateCall, sc Scope) (Fragment, error) {
	if a.Func == "count" {
		return t.count(a, sc)
	}
	if len(a.Args) != 1 {
		return Fragment{}, unsupported(KindExpression, "%s with %d arguments", a.Func, len(a.Args))
	}
	argType := a.Args[0].Type()

	switch a.Func {
	case "sum":
		if !argType.IsNumeric() {
			return Fragment{}, unsupported(KindExpression, "sum of %s", argType)
		}
		if argType.Kind == ir.KindDecimal && argType.Precision+10 > ir.MaxHostPrecision {
			// The host caps the result at 38 digits and returns NULL on
			// overflow; the store keeps summing.
			return Fragment{}, unsupported(KindNumeric, "sum of %s may overflow on the host", argType)
		}
		return t.simpleAgg("SUM", a, sc)
	case "avg":
		if !argType.IsNumeric() {
			return Fragment{}, unsupported(KindExpression, "avg of %s", argType)
		}
		if argType.Kind == ir.KindDecimal && argType.Precision+4 > ir.MaxHostPrecision {
			return Fragment{}, unsupported(KindNumeric, "avg of %s may overflow on the host", argType)
		}
		if argType.IsIntegral() {
			// The host averages integers as doubles.
			arg, err := t.aggArg(a, a.Args[0], sc)
			if err != nil {
				return Fragment{}, err
			}
			d, err := t.toDouble(arg)
			if err != nil {
				return Fragment{}, err
			}
			return aggCall("AVG", a.Distinct, d), nil
		}
		return t.simpleAgg("AVG", a, sc)
	case "min", "max":
		if argType.Kind == ir.KindString {
			return Fragment{}, unsupported(KindExpression, "%s of string depends on collation", a.Func)
		}
		name := "MIN"
		if a.Func == "max" {
			name = "MAX"
		}
		return t.simpleAgg(name, a, sc)
	}

	if s, ok := statisticalAggs[a.Func]; ok {
		if err := t.require(s.construct); err != nil {
			return Fragment{}, err
		}
		if !argType.IsNumeric() {
			return Fragment{}, unsupported(KindExpression, "%s of %s", a.Func, argType)
		}
		return t.simpleAgg(s.sql, a, sc)
	}

	if b, ok := bitAggs[a.Func]; ok {
		if err := t.require(b.construct); err != nil {
			return Fragment{}, err
		}
		if !argType.IsIntegral() || a.Distinct {
			return Fragment{}, unsupported(KindExpression, "%s of %s", a.Func, argType)
		}
		arg, err := t.aggArg(a, a.Args[0], sc)
		if err != nil {
			return Fragment{}, err
		}
		// The store returns an unsigned identity value over empty input
		// where the host returns NULL.
		var w sqlWriter
		w.write("IF(COUNT(")
		w.frag(arg)
		w.write(") = 0, NULL, CAST(" + b.sql + "(")
		w.frag(arg)
		w.write(") AS SIGNED))")
		return w.fragment(), nil
	}

	return Fragment{}, unsupported(KindExpression, "aggregate %s", a.Func)
}

func (t *Translator) count(a *plan.AggregateCall, sc Scope) (Fragment, error) {
	if len(a.Args) == 0 {
		if a.Distinct {
			return Fragment{}, unsupported(KindExpression, "count(distinct *)")
		}
		if a.Filter == nil {
			return raw("COUNT(*)"), nil
		}
		cond, err := t.Expr(a.Filter, sc)
		if err != nil {
			return Fragment{}, err
		}
		return wrap("COUNT(IF(", cond, ", 1, NULL))"), nil
	}
	if len(a.Args) > 1 && !a.Distinct {
		return Fragment{}, unsupported(KindExpression, "count with %d arguments", len(a.Args))
	}
	args := make([]Fragment, len(a.Args))
	for i, e := range a.Args {
		f, err := t.aggArg(a, e, sc)
		if err != nil {
			return Fragment{}, err
		}
		args[i] = f
	}
	return aggCall("COUNT", a.Distinct, args...), nil
}

func (t *Translator) simpleAgg(name string, a *plan.AggregateCall, sc Scope) (Fragment, error) {
	arg, err := t.aggArg(a, a.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	return aggCall(name, a.Distinct, arg), nil
}

// aggArg translates an aggregate argument, applying the FILTER clause as
// IF(cond, x, NULL). Distinct string arguments compare as bytes.
func (t *Translator) aggArg(a *plan.AggregateCall, e plan.Expr, sc Scope) (Fragment, error) {
	var (
		f   Fragment
		err error
	)
	if a.Distinct {
		f, err = t.comparable(e, sc)
	} else {
		f, err = t.Expr(e, sc)
	}
	if err != nil {
		return Fragment{}, err
	}
	if a.Filter == nil {
		return f, nil
	}
	cond, err := t.Expr(a.Filter, sc)
	if err != nil {
		return Fragment{}, err
	}
	return call("IF", cond, f, raw("NULL")), nil
}

func aggCall(name string, distinct bool, args ...Fragment) Fragment {
	var w sqlWriter
	w.write(name + "(")
	if distinct {
		w.write("DISTINCT ")
	}
	w.join(args, ", ")
	w.write(")")
	return w.fragment()
}
