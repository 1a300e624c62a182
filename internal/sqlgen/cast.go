package sqlgen

import (
	"fmt"

	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// cast translates a type conversion. Only conversions whose store result is
// identical to the host's are pushed: widening numeric casts, exact values
// to text, and a few boolean and date forms.
func (t *Translator) cast(c *plan.Cast, sc Scope) (Fragment, error) {
	from, to := c.Child.Type(), c.To
	if from == to {
		return t.Expr(c.Child, sc)
	}
	if !to.IsValid() {
		return Fragment{}, unsupported(KindExpression, "cast to invalid type %s", to)
	}
	child, err := t.Expr(c.Child, sc)
	if err != nil {
		return Fragment{}, err
	}
	if from.Kind == ir.KindNull {
		return child, nil
	}

	switch {
	case to.Kind == ir.KindString:
		return t.castToString(child, from)
	case to.IsIntegral():
		return castToIntegral(child, from, to)
	case to.Kind == ir.KindDecimal:
		return castToDecimal(child, from, to)
	case to.Kind == ir.KindDouble:
		if !from.IsNumeric() {
			return Fragment{}, unsupported(KindExpression, "cast %s to double", from)
		}
		return t.toDouble(child)
	case to.Kind == ir.KindBoolean:
		if !from.IsIntegral() {
			return Fragment{}, unsupported(KindExpression, "cast %s to boolean", from)
		}
		return wrap("(", child, " <> 0)"), nil
	case to.Kind == ir.KindTimestamp && from.Kind == ir.KindDate:
		return wrap("CAST(", child, " AS DATETIME(6))"), nil
	}
	return Fragment{}, unsupported(KindExpression, "cast %s to %s", from, to)
}

func (t *Translator) castToString(child Fragment, from ir.DataType) (Fragment, error) {
	switch {
	case from.IsExact(), from.Kind == ir.KindDate:
		return wrap("CAST(", child, " AS CHAR)"), nil
	case from.Kind == ir.KindBoolean:
		return boolCase(child, "'true'", "'false'"), nil
	}
	// Float formatting and timestamp rendering differ between host and
	// store.
	return Fragment{}, unsupported(KindExpression, "cast %s to string", from)
}

func castToIntegral(child Fragment, from, to ir.DataType) (Fragment, error) {
	switch {
	case from.IsIntegral():
		if from.BitWidth() > to.BitWidth() {
			return Fragment{}, unsupported(KindNumeric, "narrowing cast %s to %s", from, to)
		}
		// Widening is implicit in the store.
		return child, nil
	case from.Kind == ir.KindBoolean:
		return boolCase(child, "1", "0"), nil
	case from.IsFractional(), from.Kind == ir.KindDecimal:
		// The host truncates, the store rounds.
		return Fragment{}, unsupported(KindNumeric, "cast %s to %s", from, to)
	}
	return Fragment{}, unsupported(KindExpression, "cast %s to %s", from, to)
}

func castToDecimal(child Fragment, from, to ir.DataType) (Fragment, error) {
	if err := checkStoreDecimal(to); err != nil {
		return Fragment{}, err
	}
	if !from.IsExact() {
		return Fragment{}, unsupported(KindNumeric, "cast %s to %s", from, to)
	}
	p, s := exactDigits(from)
	if p-s > to.Precision-to.Scale || s > to.Scale {
		return Fragment{}, unsupported(KindNumeric, "narrowing cast %s to %s", from, to)
	}
	return wrap("CAST(", child, fmt.Sprintf(" AS DECIMAL(%d, %d))", to.Precision, to.Scale)), nil
}

// boolCase maps a boolean to one of two constants. A NULL input matches
// neither branch and stays NULL; IF(x, a, b) would take b.
func boolCase(child Fragment, yes, no string) Fragment {
	var w sqlWriter
	w.write("CASE WHEN ")
	w.frag(child)
	w.write(" THEN " + yes + " WHEN NOT ")
	w.frag(child)
	w.write(" THEN " + no + " END")
	return w.fragment()
}
