package sqlgen

import (
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

var comparisonOps = map[string]string{
	"eq":           "=",
	"ne":           "<>",
	"lt":           "<",
	"le":           "<=",
	"gt":           ">",
	"ge":           ">=",
	"null_safe_eq": "<=>",
}

var arithmeticOps = map[string]string{
	"add":    "+",
	"sub":    "-",
	"mul":    "*",
	"div":    "/",
	"mod":    "%",
	"intdiv": "DIV",
}

// simpleFunc maps a host function 1:1 onto a store function. arity -1 means
// variadic with at least one argument.
type simpleFunc struct {
	name  string
	arity int
}

var simpleFuncs = map[string]simpleFunc{
	"floor":    {"FLOOR", 1},
	"ceil":     {"CEIL", 1},
	"ln":       {"LN", 1},
	"upper":    {"UPPER", 1},
	"lower":    {"LOWER", 1},
	"length":   {"CHAR_LENGTH", 1},
	"trim":     {"TRIM", 1},
	"ltrim":    {"LTRIM", 1},
	"rtrim":    {"RTRIM", 1},
	"concat":   {"CONCAT", -1},
	"coalesce": {"COALESCE", -1},
	"if":       {"IF", 3},
}

// Functions whose result differs between evaluations.
var nondeterministic = map[string]bool{
	"rand":                        true,
	"random":                      true,
	"current_date":                true,
	"current_timestamp":           true,
	"now":                         true,
	"uuid":                        true,
	"monotonically_increasing_id": true,
}

// datePartFuncs only accept DATE arguments; TIMESTAMP parts depend on the
// session time zone, which the host and store may not share.
var datePartFuncs = map[string]string{
	"year":  "YEAR",
	"month": "MONTH",
	"day":   "DAYOFMONTH",
}

func (t *Translator) call(c *plan.Call, sc Scope) (Fragment, error) {
	if nondeterministic[c.Func] {
		return Fragment{}, unsupported(KindExpression, "nondeterministic function %s", c.Func)
	}
	if op, ok := comparisonOps[c.Func]; ok {
		return t.comparison(c, op, sc)
	}
	if op, ok := arithmeticOps[c.Func]; ok {
		return t.arithmetic(c, op, sc)
	}
	if name, ok := datePartFuncs[c.Func]; ok {
		return t.dateFunc(c, name, sc)
	}
	if f, ok := simpleFuncs[c.Func]; ok {
		if f.arity >= 0 && len(c.Args) != f.arity || len(c.Args) == 0 {
			return Fragment{}, unsupported(KindExpression, "%s with %d arguments", c.Func, len(c.Args))
		}
		args, err := t.exprs(c.Args, sc)
		if err != nil {
			return Fragment{}, err
		}
		return call(f.name, args...), nil
	}

	switch c.Func {
	case "and", "or":
		return t.logical(c, sc)
	case "not":
		return t.unary(c, sc, "(NOT ", ")")
	case "is_null":
		return t.unary(c, sc, "(", " IS NULL)")
	case "is_not_null":
		return t.unary(c, sc, "(", " IS NOT NULL)")
	case "neg":
		if narrowIntegral(c.DataType) {
			return Fragment{}, unsupported(KindNumeric, "negation of %s wraps on the host", c.DataType)
		}
		return t.unary(c, sc, "(-", ")")
	case "abs":
		if narrowIntegral(c.DataType) {
			return Fragment{}, unsupported(KindNumeric, "abs of %s wraps on the host", c.DataType)
		}
		return t.unary(c, sc, "ABS(", ")")
	case "like":
		return t.like(c, sc)
	case "starts_with", "ends_with", "contains":
		return t.stringMatch(c, sc)
	case "greatest", "least":
		return t.extremum(c, sc)
	case "round":
		return t.round(c, sc)
	case "substring":
		return t.substring(c, sc)
	case "concat_ws":
		if err := t.require(dialect.FuncConcatWs); err != nil {
			return Fragment{}, err
		}
		if len(c.Args) < 2 {
			return Fragment{}, unsupported(KindExpression, "concat_ws with %d arguments", len(c.Args))
		}
		args, err := t.exprs(c.Args, sc)
		if err != nil {
			return Fragment{}, err
		}
		return call("CONCAT_WS", args...), nil
	case "last_day":
		if err := t.require(dialect.FuncLastDay); err != nil {
			return Fragment{}, err
		}
		return t.dateFunc(c, "LAST_DAY", sc)
	case "date_add", "date_sub":
		return t.dateArith(c, sc)
	case "datediff":
		if len(c.Args) != 2 || c.Args[0].Type() != ir.Date || c.Args[1].Type() != ir.Date {
			return Fragment{}, unsupported(KindExpression, "datediff needs two dates")
		}
		args, err := t.exprs(c.Args, sc)
		if err != nil {
			return Fragment{}, err
		}
		return call("DATEDIFF", args...), nil
	}
	return Fragment{}, unsupported(KindExpression, "function %s", c.Func)
}

func (t *Translator) unary(c *plan.Call, sc Scope, prefix, suffix string) (Fragment, error) {
	if len(c.Args) != 1 {
		return Fragment{}, unsupported(KindExpression, "%s with %d arguments", c.Func, len(c.Args))
	}
	f, err := t.Expr(c.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	return wrap(prefix, f, suffix), nil
}

func (t *Translator) logical(c *plan.Call, sc Scope) (Fragment, error) {
	if len(c.Args) < 2 {
		return Fragment{}, unsupported(KindExpression, "%s with %d arguments", c.Func, len(c.Args))
	}
	args, err := t.exprs(c.Args, sc)
	if err != nil {
		return Fragment{}, err
	}
	sep := " AND "
	if c.Func == "or" {
		sep = " OR "
	}
	var w sqlWriter
	w.write("(")
	w.join(args, sep)
	w.write(")")
	return w.fragment(), nil
}

func (t *Translator) comparison(c *plan.Call, op string, sc Scope) (Fragment, error) {
	if len(c.Args) != 2 {
		return Fragment{}, unsupported(KindExpression, "%s with %d arguments", c.Func, len(c.Args))
	}
	l, err := t.comparable(c.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	r, err := t.comparable(c.Args[1], sc)
	if err != nil {
		return Fragment{}, err
	}
	return infix(op, l, r), nil
}

func narrowIntegral(dt ir.DataType) bool {
	return dt.IsIntegral() && dt.BitWidth() < 64
}

// exactDigits returns the precision and scale of an exact type, treating
// integral types as the decimal they widen to.
func exactDigits(dt ir.DataType) (precision, scale int) {
	if dt.Kind == ir.KindDecimal {
		return dt.Precision, dt.Scale
	}
	return dt.IntegralDigits(), 0
}

func (t *Translator) arithmetic(c *plan.Call, op string, sc Scope) (Fragment, error) {
	if len(c.Args) != 2 {
		return Fragment{}, unsupported(KindExpression, "%s with %d arguments", c.Func, len(c.Args))
	}
	l, r := c.Args[0], c.Args[1]
	if !l.Type().IsNumeric() || !r.Type().IsNumeric() {
		return Fragment{}, unsupported(KindExpression, "%s over %s and %s", c.Func, l.Type(), r.Type())
	}
	if err := checkArithmetic(c.Func, l.Type(), r.Type(), c.DataType); err != nil {
		return Fragment{}, err
	}

	lf, err := t.Expr(l, sc)
	if err != nil {
		return Fragment{}, err
	}
	rf, err := t.Expr(r, sc)
	if err != nil {
		return Fragment{}, err
	}
	// Exact operands of a floating point result are widened first so the
	// store does not compute in DECIMAL and round to its own scale.
	if c.DataType.IsFractional() {
		if l.Type().IsExact() {
			if lf, err = t.toDouble(lf); err != nil {
				return Fragment{}, err
			}
		}
		if r.Type().IsExact() {
			if rf, err = t.toDouble(rf); err != nil {
				return Fragment{}, err
			}
		}
	}
	return infix(op, lf, rf), nil
}

// checkArithmetic rejects arithmetic whose host result can overflow, wrap or
// round differently from the store's.
func checkArithmetic(fn string, l, r, result ir.DataType) error {
	switch {
	case result.IsIntegral():
		if !l.IsIntegral() || !r.IsIntegral() || fn == "div" {
			return unsupported(KindNumeric, "%s of %s and %s declared %s", fn, l, r, result)
		}
		if result.BitWidth() < 64 && fn != "mod" && fn != "intdiv" {
			// The host wraps narrow integers; the store widens.
			return unsupported(KindNumeric, "%s declared %s wraps on the host", fn, result)
		}
	case result.Kind == ir.KindDecimal:
		if !l.IsExact() || !r.IsExact() {
			return unsupported(KindNumeric, "%s of %s and %s declared %s", fn, l, r, result)
		}
		p1, s1 := exactDigits(l)
		p2, s2 := exactDigits(r)
		var p, s int
		switch fn {
		case "add", "sub":
			s = max(s1, s2)
			p = max(p1-s1, p2-s2) + s + 1
		case "mul":
			p, s = p1+p2+1, s1+s2
		case "mod":
			s = max(s1, s2)
			p = min(p1-s1, p2-s2) + s
		default:
			// The store divides DECIMALs at its own scale.
			return unsupported(KindNumeric, "decimal %s", fn)
		}
		if p-s > result.Precision-result.Scale {
			return unsupported(KindNumeric, "%s of %s and %s overflows %s", fn, l, r, result)
		}
		if s > result.Scale {
			return unsupported(KindNumeric, "%s of %s and %s rounds to %s", fn, l, r, result)
		}
		if err := checkStoreDecimal(result); err != nil {
			return err
		}
	case result.IsFractional():
		if fn == "intdiv" {
			return unsupported(KindNumeric, "intdiv declared %s", result)
		}
	default:
		return unsupported(KindExpression, "%s declared %s", fn, result)
	}
	return nil
}

func (t *Translator) toDouble(f Fragment) (Fragment, error) {
	if err := t.require(dialect.CastDouble); err != nil {
		return Fragment{}, err
	}
	return wrap("CAST(", f, " AS DOUBLE)"), nil
}

func (t *Translator) like(c *plan.Call, sc Scope) (Fragment, error) {
	if len(c.Args) != 2 {
		return Fragment{}, unsupported(KindExpression, "like with %d arguments", len(c.Args))
	}
	s, err := t.comparable(c.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	pattern, err := t.Expr(c.Args[1], sc)
	if err != nil {
		return Fragment{}, err
	}
	return infix("LIKE", s, pattern), nil
}

// stringMatch renders starts_with, ends_with and contains on bytes, so LIKE
// wildcards in the needle have no special meaning.
func (t *Translator) stringMatch(c *plan.Call, sc Scope) (Fragment, error) {
	if len(c.Args) != 2 || !isString(c.Args[0]) || !isString(c.Args[1]) {
		return Fragment{}, unsupported(KindExpression, "%s needs two strings", c.Func)
	}
	s, err := t.comparable(c.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	needle, err := t.comparable(c.Args[1], sc)
	if err != nil {
		return Fragment{}, err
	}
	switch c.Func {
	case "starts_with":
		return infix("=", call("LEFT", s, call("LENGTH", needle)), needle), nil
	case "ends_with":
		return infix("=", call("RIGHT", s, call("LENGTH", needle)), needle), nil
	default:
		return infix(">", call("INSTR", s, needle), raw("0")), nil
	}
}

// extremum renders greatest and least. The host skips NULL arguments while
// the store returns NULL if any argument is NULL, so each argument is
// coalesced with the others: GREATEST(COALESCE(a, b, c), COALESCE(b, a, c),
// COALESCE(c, a, b)) is NULL only when every argument is.
func (t *Translator) extremum(c *plan.Call, sc Scope) (Fragment, error) {
	if len(c.Args) < 2 {
		return Fragment{}, unsupported(KindExpression, "%s with %d arguments", c.Func, len(c.Args))
	}
	for _, a := range c.Args {
		if isString(a) {
			return Fragment{}, unsupported(KindExpression, "%s over strings depends on collation", c.Func)
		}
	}
	args, err := t.exprs(c.Args, sc)
	if err != nil {
		return Fragment{}, err
	}
	name := "GREATEST"
	if c.Func == "least" {
		name = "LEAST"
	}

	nullable := false
	for _, a := range c.Args {
		nullable = nullable || a.Nullable()
	}
	if !nullable {
		return call(name, args...), nil
	}

	coalesced := make([]Fragment, len(args))
	for i := range args {
		order := make([]Fragment, 0, len(args))
		order = append(order, args[i])
		for j := range args {
			if j != i {
				order = append(order, args[j])
			}
		}
		coalesced[i] = call("COALESCE", order...)
	}
	return call(name, coalesced...), nil
}

func (t *Translator) round(c *plan.Call, sc Scope) (Fragment, error) {
	if len(c.Args) < 1 || len(c.Args) > 2 {
		return Fragment{}, unsupported(KindExpression, "round with %d arguments", len(c.Args))
	}
	if !c.Args[0].Type().IsExact() {
		// HALF_UP on the host, half-even on the store for doubles.
		return Fragment{}, unsupported(KindNumeric, "round of %s", c.Args[0].Type())
	}
	if len(c.Args) == 2 {
		if _, ok := intLiteral(c.Args[1]); !ok {
			return Fragment{}, unsupported(KindExpression, "round with non-literal scale")
		}
	}
	args, err := t.exprs(c.Args, sc)
	if err != nil {
		return Fragment{}, err
	}
	return call("ROUND", args...), nil
}

func (t *Translator) substring(c *plan.Call, sc Scope) (Fragment, error) {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		return Fragment{}, unsupported(KindExpression, "substring with %d arguments", len(c.Args))
	}
	pos, ok := intLiteral(c.Args[1])
	if !ok || pos < 0 {
		return Fragment{}, unsupported(KindExpression, "substring needs a non-negative literal position")
	}
	if pos == 0 {
		// The host treats position 0 as 1; the store returns ''.
		pos = 1
	}
	s, err := t.Expr(c.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	var w sqlWriter
	w.write("SUBSTRING(")
	w.frag(s)
	w.write(", ")
	w.param(pos)
	if len(c.Args) == 3 {
		n, err := t.Expr(c.Args[2], sc)
		if err != nil {
			return Fragment{}, err
		}
		w.write(", ")
		w.frag(n)
	}
	w.write(")")
	return w.fragment(), nil
}

func (t *Translator) dateFunc(c *plan.Call, name string, sc Scope) (Fragment, error) {
	if len(c.Args) != 1 || c.Args[0].Type() != ir.Date {
		return Fragment{}, unsupported(KindExpression, "%s needs one date argument", c.Func)
	}
	return t.unary(c, sc, name+"(", ")")
}

func (t *Translator) dateArith(c *plan.Call, sc Scope) (Fragment, error) {
	if len(c.Args) != 2 || c.Args[0].Type() != ir.Date || !c.Args[1].Type().IsIntegral() {
		return Fragment{}, unsupported(KindExpression, "%s needs a date and a day count", c.Func)
	}
	d, err := t.Expr(c.Args[0], sc)
	if err != nil {
		return Fragment{}, err
	}
	n, err := t.Expr(c.Args[1], sc)
	if err != nil {
		return Fragment{}, err
	}
	name := "DATE_ADD("
	if c.Func == "date_sub" {
		name = "DATE_SUB("
	}
	var w sqlWriter
	w.write(name)
	w.frag(d)
	w.write(", INTERVAL ")
	w.frag(n)
	w.write(" DAY)")
	return w.fragment(), nil
}

// intLiteral returns the value of an integral literal.
func intLiteral(e plan.Expr) (int64, bool) {
	l, ok := e.(*plan.Literal)
	if !ok {
		return 0, false
	}
	v, ok := l.Value.(ir.IntValue)
	return int64(v), ok
}
