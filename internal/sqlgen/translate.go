package sqlgen

import (
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// Store decimal limits. DECIMAL(65,30) is the widest the store accepts.
const (
	MaxStorePrecision = 65
	MaxStoreScale     = 30
)

// Scope renders the input columns of an expression: Scope[i] is the SQL for
// column ordinal i.
type Scope []string

// Qualified builds a scope for columns exposed by a derived table alias.
func Qualified(alias string, names []string) Scope {
	sc := make(Scope, len(names))
	for i, n := range names {
		sc[i] = dialect.QuoteQualified(alias, n)
	}
	return sc
}

// Translator renders expressions for one store version. It is immutable and
// safe for concurrent use.
type Translator struct {
	caps *dialect.Capabilities
}

// NewTranslator returns a translator for the given capabilities.
func NewTranslator(caps *dialect.Capabilities) *Translator {
	return &Translator{caps: caps}
}

// Capabilities returns the capabilities the translator gates on.
func (t *Translator) Capabilities() *dialect.Capabilities {
	return t.caps
}

// Expr translates e with its column references resolved through sc.
//
// Translation is all or nothing: if any sub-expression is unsupported the
// whole expression is, and the returned error is an *UnsupportedError.
func (t *Translator) Expr(e plan.Expr, sc Scope) (Fragment, error) {
	if e == nil {
		return Fragment{}, unsupported(KindExpression, "nil expression")
	}
	switch e := e.(type) {
	case *plan.Literal:
		return t.literal(e)
	case *plan.ColumnRef:
		if e.Index < 0 || e.Index >= len(sc) {
			return Fragment{}, unsupported(KindExpression, "column %s not in scope", e)
		}
		return raw(sc[e.Index]), nil
	case *plan.Call:
		return t.call(e, sc)
	case *plan.Cast:
		return t.cast(e, sc)
	case *plan.Case:
		return t.caseWhen(e, sc)
	case *plan.In:
		return t.in(e, sc)
	case *plan.AggregateCall:
		return t.aggregate(e, sc)
	case *plan.WindowCall:
		return t.window(e, sc)
	case *plan.UDF:
		return Fragment{}, unsupported(KindExpression, "user-defined function %s", e.Name)
	default:
		return Fragment{}, unsupported(KindExpression, "unknown expression %T", e)
	}
}

// exprs translates a list, failing on the first unsupported element.
func (t *Translator) exprs(es []plan.Expr, sc Scope) ([]Fragment, error) {
	out := make([]Fragment, len(es))
	for i, e := range es {
		f, err := t.Expr(e, sc)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// require gates a construct on the store version.
func (t *Translator) require(k dialect.Construct) error {
	if t.caps.Supports(k) {
		return nil
	}
	if min, ok := dialect.MinVersion(k); ok {
		return unsupported(KindVersion, "%s requires %s, store is %s", k, min, t.caps.Version())
	}
	return unsupported(KindVersion, "%s not available", k)
}

// literal binds a constant. Keywords are inlined; everything else becomes a
// placeholder.
func (t *Translator) literal(l *plan.Literal) (Fragment, error) {
	var w sqlWriter
	switch v := l.Value.(type) {
	case ir.NullValue:
		w.write("NULL")
	case ir.BoolValue:
		if v {
			w.write("TRUE")
		} else {
			w.write("FALSE")
		}
	case ir.IntValue:
		w.param(int64(v))
	case ir.FloatValue:
		if !v.IsFinite() {
			return Fragment{}, unsupported(KindNumeric, "non-finite float literal %s", v)
		}
		f := float64(v)
		if l.DataType.Kind == ir.KindFloat {
			// The host holds float literals in 32 bits.
			f = float64(float32(f))
		}
		w.param(f)
	case ir.DecimalValue:
		p, s := l.DataType.Precision, l.DataType.Scale
		if dp, ds := v.Digits(); dp-ds > p-s || ds > s {
			return Fragment{}, unsupported(KindNumeric, "decimal literal %s does not fit %s", v, l.DataType)
		}
		if err := checkStoreDecimal(l.DataType); err != nil {
			return Fragment{}, err
		}
		w.write("CAST(")
		w.param(v.StringFixed(int32(s)))
		w.writef(" AS DECIMAL(%d, %d))", p, s)
	case ir.StringValue:
		w.param(string(v))
	case ir.DateValue:
		w.write("CAST(")
		w.param(v.String())
		w.write(" AS DATE)")
	case ir.TimestampValue:
		w.write("CAST(")
		w.param(v.String())
		w.write(" AS DATETIME(6))")
	case ir.BytesValue:
		return Fragment{}, unsupported(KindExpression, "binary literal")
	case ir.IntervalValue:
		return Fragment{}, unsupported(KindExpression, "interval literal %s", v)
	default:
		return Fragment{}, unsupported(KindExpression, "literal %T", l.Value)
	}
	return w.fragment(), nil
}

func checkStoreDecimal(dt ir.DataType) error {
	if dt.Precision > MaxStorePrecision || dt.Scale > MaxStoreScale {
		return unsupported(KindNumeric, "%s exceeds DECIMAL(%d,%d)", dt, MaxStorePrecision, MaxStoreScale)
	}
	return nil
}

func isString(e plan.Expr) bool {
	return e.Type().Kind == ir.KindString
}

// binary forces byte-wise comparison, matching the host's UTF-8 ordering
// whatever the column collation is.
func binary(f Fragment) Fragment {
	return wrap("CAST(", f, " AS BINARY)")
}

// comparable translates e for use as a comparison, grouping or ordering
// key.
func (t *Translator) comparable(e plan.Expr, sc Scope) (Fragment, error) {
	f, err := t.Expr(e, sc)
	if err != nil {
		return Fragment{}, err
	}
	if isString(e) {
		return binary(f), nil
	}
	return f, nil
}

func (t *Translator) caseWhen(c *plan.Case, sc Scope) (Fragment, error) {
	if len(c.Whens) == 0 {
		return Fragment{}, unsupported(KindExpression, "case without branches")
	}
	var w sqlWriter
	w.write("CASE")
	for _, wh := range c.Whens {
		cond, err := t.Expr(wh.Cond, sc)
		if err != nil {
			return Fragment{}, err
		}
		then, err := t.Expr(wh.Then, sc)
		if err != nil {
			return Fragment{}, err
		}
		w.write(" WHEN ")
		w.frag(cond)
		w.write(" THEN ")
		w.frag(then)
	}
	if c.Else != nil {
		els, err := t.Expr(c.Else, sc)
		if err != nil {
			return Fragment{}, err
		}
		w.write(" ELSE ")
		w.frag(els)
	}
	w.write(" END")
	return w.fragment(), nil
}

func (t *Translator) in(e *plan.In, sc Scope) (Fragment, error) {
	if len(e.List) == 0 {
		return Fragment{}, unsupported(KindExpression, "empty IN list")
	}
	child, err := t.comparable(e.Child, sc)
	if err != nil {
		return Fragment{}, err
	}
	list, err := t.exprs(e.List, sc)
	if err != nil {
		return Fragment{}, err
	}
	var w sqlWriter
	w.write("(")
	w.frag(child)
	if e.Negated {
		w.write(" NOT IN (")
	} else {
		w.write(" IN (")
	}
	w.join(list, ", ")
	w.write("))")
	return w.fragment(), nil
}

// OrderKey renders one ORDER BY key. The store sorts NULLs first ascending
// and last descending, the same as the host, so a null-ordering prefix is
// only emitted when the key asks for the opposite.
func (t *Translator) OrderKey(k plan.SortKey, sc Scope) (Fragment, error) {
	f, err := t.comparable(k.Expr, sc)
	if err != nil {
		return Fragment{}, err
	}
	dir := " ASC"
	if k.Descending {
		dir = " DESC"
	}
	var w sqlWriter
	if k.NullsFirst != plan.DefaultNullsFirst(k.Descending) {
		nullsDir := " ASC"
		if k.NullsFirst {
			nullsDir = " DESC"
		}
		w.write("(")
		w.frag(f)
		w.write(" IS NULL)" + nullsDir + ", ")
	}
	w.frag(f)
	w.write(dir)
	return w.fragment(), nil
}

// OrderBy renders a full key list without the ORDER BY keyword.
func (t *Translator) OrderBy(keys []plan.SortKey, sc Scope) (Fragment, error) {
	fs := make([]Fragment, len(keys))
	for i, k := range keys {
		f, err := t.OrderKey(k, sc)
		if err != nil {
			return Fragment{}, err
		}
		fs[i] = f
	}
	var w sqlWriter
	w.join(fs, ", ")
	return w.fragment(), nil
}
