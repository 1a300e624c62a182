package planfile

import (
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// predicates always return boolean.
var predicates = map[string]bool{
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
	"null_safe_eq": true,
	"and":          true, "or": true, "not": true,
	"is_null": true, "is_not_null": true,
	"like": true, "starts_with": true, "ends_with": true, "contains": true,
}

// neverNull functions return a non-null value for any input.
var neverNull = map[string]bool{
	"is_null": true, "is_not_null": true, "null_safe_eq": true,
}

var boundKinds = map[string]plan.BoundKind{
	"unbounded_preceding": plan.UnboundedPreceding,
	"preceding":           plan.Preceding,
	"current_row":         plan.CurrentRow,
	"following":           plan.Following,
	"unbounded_following": plan.UnboundedFollowing,
}

func (d *planDecoder) exprs(es []Expr, in plan.Schema, path string) ([]plan.Expr, error) {
	out := make([]plan.Expr, len(es))
	for i := range es {
		e, err := d.expr(&es[i], in, path)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *planDecoder) expr(e *Expr, in plan.Schema, path string) (plan.Expr, error) {
	switch {
	case e.Col != "":
		i := in.Index(e.Col)
		if i < 0 {
			return nil, errorf(path, "unknown or ambiguous column %q in %s", e.Col, in)
		}
		return plan.Col(in, i), nil
	case e.Ord != nil:
		if *e.Ord < 0 || *e.Ord >= len(in) {
			return nil, errorf(path, "ordinal %d out of range for %s", *e.Ord, in)
		}
		return plan.Col(in, *e.Ord), nil
	case e.Lit != nil || e.Null:
		return d.literal(e, path)
	case e.Call != "":
		return d.call(e, in, path)
	case e.UDF != "":
		args, err := d.exprs(e.Args, in, path)
		if err != nil {
			return nil, err
		}
		t, err := resultType(e, args, path)
		if err != nil {
			return nil, err
		}
		return &plan.UDF{Name: e.UDF, Args: args, DataType: t, IsNullable: nullable(e, true)}, nil
	case e.Agg != "":
		agg, err := d.aggregate(e, in, path)
		if err != nil {
			return nil, err
		}
		if e.Over == nil {
			return agg, nil
		}
		spec, err := d.over(e.Over, in, path)
		if err != nil {
			return nil, err
		}
		return &plan.WindowCall{Func: e.Agg, Agg: agg, Spec: spec, DataType: agg.DataType, IsNullable: agg.IsNullable}, nil
	case e.Window != "":
		return d.window(e, in, path)
	case e.Cast != nil:
		child, err := d.expr(e.Cast, in, path)
		if err != nil {
			return nil, err
		}
		to, err := ir.ParseType(e.Type)
		if err != nil {
			return nil, errorf(path, "cast: %v", err)
		}
		return &plan.Cast{Child: child, To: to}, nil
	case len(e.Case) > 0:
		return d.caseWhen(e, in, path)
	case e.In != nil:
		child, err := d.expr(e.In, in, path)
		if err != nil {
			return nil, err
		}
		list, err := d.exprs(e.List, in, path)
		if err != nil {
			return nil, err
		}
		return &plan.In{Child: child, List: list, Negated: e.Not}, nil
	}
	return nil, errorf(path, "expression has no kind")
}

func (d *planDecoder) literal(e *Expr, path string) (plan.Expr, error) {
	if e.Null {
		t := ir.Null
		if e.Type != "" {
			var err error
			if t, err = ir.ParseType(e.Type); err != nil {
				return nil, errorf(path, "%v", err)
			}
		}
		return plan.Lit(ir.NullValue{}, t), nil
	}

	var t ir.DataType
	if e.Type != "" {
		var err error
		if t, err = ir.ParseType(e.Type); err != nil {
			return nil, errorf(path, "%v", err)
		}
	} else {
		switch e.Lit.ShortTag() {
		case "!!int":
			t = ir.Long
		case "!!float":
			t = ir.Double
		case "!!bool":
			t = ir.Boolean
		case "!!null":
			return plan.Lit(ir.NullValue{}, ir.Null), nil
		default:
			t = ir.String
		}
	}
	v, err := parseValue(e.Lit, t)
	if err != nil {
		return nil, errorf(path, "literal: %v", err)
	}
	return plan.Lit(v, t), nil
}

// parseValue converts a YAML scalar to a value of type t. Strings are
// NFC-normalized so that canonically equal text compares equal in the
// store's byte comparisons.
func parseValue(n *yaml.Node, t ir.DataType) (ir.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("want a scalar, got %s", nodeKind(n))
	}
	if n.ShortTag() == "!!null" {
		return ir.NullValue{}, nil
	}
	s := n.Value
	switch {
	case t.Kind == ir.KindBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return ir.BoolValue(b), nil
	case t.IsIntegral():
		i, err := strconv.ParseInt(s, 10, t.BitWidth())
		if err != nil {
			return nil, err
		}
		return ir.IntValue(i), nil
	case t.IsFractional():
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return ir.FloatValue(f), nil
	}
	switch t.Kind {
	case ir.KindDecimal:
		return ir.NewDecimal(s)
	case ir.KindString:
		return ir.StringValue(norm.NFC.String(s)), nil
	case ir.KindBinary:
		return ir.BytesValue(s), nil
	case ir.KindDate:
		return ir.ParseDate(s)
	case ir.KindTimestamp:
		return ir.ParseTimestamp(s)
	case ir.KindNull:
		return ir.NullValue{}, nil
	}
	return nil, fmt.Errorf("no literal syntax for %s", t)
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}

func (d *planDecoder) call(e *Expr, in plan.Schema, path string) (plan.Expr, error) {
	args, err := d.exprs(e.Args, in, path)
	if err != nil {
		return nil, err
	}
	var t ir.DataType
	if predicates[e.Call] && e.Type == "" {
		t = ir.Boolean
	} else if t, err = resultType(e, args, path); err != nil {
		return nil, err
	}

	var isNull bool
	switch {
	case neverNull[e.Call]:
	case e.Call == "coalesce":
		isNull = true
		for _, a := range args {
			isNull = isNull && a.Nullable()
		}
	case e.Call == "div" || e.Call == "mod" || e.Call == "intdiv":
		// Division by zero yields NULL.
		isNull = true
	default:
		for _, a := range args {
			isNull = isNull || a.Nullable()
		}
	}
	return &plan.Call{Func: e.Call, Args: args, DataType: t, IsNullable: nullable(e, isNull)}, nil
}

func (d *planDecoder) aggregate(e *Expr, in plan.Schema, path string) (*plan.AggregateCall, error) {
	args, err := d.exprs(e.Args, in, path)
	if err != nil {
		return nil, err
	}
	a := &plan.AggregateCall{Func: e.Agg, Args: args, Distinct: e.Distinct, IsNullable: e.Agg != "count"}
	if e.Filter != nil {
		if a.Filter, err = d.expr(e.Filter, in, path); err != nil {
			return nil, err
		}
	}

	switch {
	case e.Type != "":
		if a.DataType, err = ir.ParseType(e.Type); err != nil {
			return nil, errorf(path, "%v", err)
		}
	case e.Agg == "count":
		a.DataType = ir.Long
	case len(args) == 0:
		return nil, errorf(path, "%s needs an argument or a type", e.Agg)
	default:
		a.DataType = aggregateType(e.Agg, args[0].Type())
	}
	a.IsNullable = nullable(e, a.IsNullable)
	return a, nil
}

// aggregateType is the host engine's result type for an aggregate over
// an argument of type arg.
func aggregateType(fn string, arg ir.DataType) ir.DataType {
	switch fn {
	case "sum":
		switch {
		case arg.IsIntegral():
			return ir.Long
		case arg.Kind == ir.KindDecimal:
			return ir.Decimal(min(arg.Precision+10, ir.MaxHostPrecision), arg.Scale)
		}
		return ir.Double
	case "avg":
		if arg.Kind == ir.KindDecimal {
			return ir.Decimal(min(arg.Precision+4, ir.MaxHostPrecision), min(arg.Scale+4, ir.MaxHostScale))
		}
		return ir.Double
	case "stddev", "stddev_samp", "stddev_pop", "variance", "var_samp", "var_pop":
		return ir.Double
	case "bit_and", "bit_or", "bit_xor":
		return ir.Long
	}
	return arg
}

func (d *planDecoder) window(e *Expr, in plan.Schema, path string) (plan.Expr, error) {
	args, err := d.exprs(e.Args, in, path)
	if err != nil {
		return nil, err
	}
	var spec plan.WindowSpec
	if e.Over != nil {
		if spec, err = d.over(e.Over, in, path); err != nil {
			return nil, err
		}
	}
	w := &plan.WindowCall{Func: e.Window, Args: args, Spec: spec}

	switch {
	case e.Type != "":
		if w.DataType, err = ir.ParseType(e.Type); err != nil {
			return nil, errorf(path, "%v", err)
		}
		w.IsNullable = true
	case e.Window == "row_number" || e.Window == "rank" || e.Window == "dense_rank" || e.Window == "ntile":
		w.DataType = ir.Long
	case e.Window == "percent_rank" || e.Window == "cume_dist":
		w.DataType = ir.Double
	case len(args) > 0:
		// lag, lead
		w.DataType = args[0].Type()
		w.IsNullable = true
	default:
		return nil, errorf(path, "window function %s needs a type", e.Window)
	}
	w.IsNullable = nullable(e, w.IsNullable)
	return w, nil
}

func (d *planDecoder) over(o *Over, in plan.Schema, path string) (plan.WindowSpec, error) {
	parts, err := d.exprs(o.PartitionBy, in, path)
	if err != nil {
		return plan.WindowSpec{}, err
	}
	keys, err := d.sortKeys(o.OrderBy, in, path)
	if err != nil {
		return plan.WindowSpec{}, err
	}
	spec := plan.WindowSpec{PartitionBy: parts, OrderBy: keys}
	if o.Frame == nil {
		return spec, nil
	}

	f := &plan.Frame{Kind: plan.FrameRows}
	switch o.Frame.Kind {
	case "rows":
	case "range":
		f.Kind = plan.FrameRange
	default:
		return plan.WindowSpec{}, errorf(path, "unknown frame kind %q", o.Frame.Kind)
	}
	if f.Start, err = bound(o.Frame.Start, path); err != nil {
		return plan.WindowSpec{}, err
	}
	if f.End, err = bound(o.Frame.End, path); err != nil {
		return plan.WindowSpec{}, err
	}
	spec.Frame = f
	return spec, nil
}

func bound(b Bound, path string) (plan.Bound, error) {
	kind, ok := boundKinds[b.Kind]
	if !ok {
		return plan.Bound{}, errorf(path, "unknown frame bound %q", b.Kind)
	}
	out := plan.Bound{Kind: kind}
	if kind == plan.Preceding || kind == plan.Following {
		out.Offset = plan.Lit(ir.IntValue(b.Offset), ir.Long)
	}
	return out, nil
}

func (d *planDecoder) caseWhen(e *Expr, in plan.Schema, path string) (plan.Expr, error) {
	c := &plan.Case{Whens: make([]plan.When, len(e.Case))}
	for i := range e.Case {
		cond, err := d.expr(&e.Case[i].When, in, path)
		if err != nil {
			return nil, err
		}
		then, err := d.expr(&e.Case[i].Then, in, path)
		if err != nil {
			return nil, err
		}
		c.Whens[i] = plan.When{Cond: cond, Then: then}
	}
	if e.Else != nil {
		els, err := d.expr(e.Else, in, path)
		if err != nil {
			return nil, err
		}
		c.Else = els
	}
	c.DataType = c.Whens[0].Then.Type()
	if e.Type != "" {
		t, err := ir.ParseType(e.Type)
		if err != nil {
			return nil, errorf(path, "%v", err)
		}
		c.DataType = t
	}
	return c, nil
}

// resultType returns the declared type, or the argument type when every
// argument has the same one.
func resultType(e *Expr, args []plan.Expr, path string) (ir.DataType, error) {
	if e.Type != "" {
		t, err := ir.ParseType(e.Type)
		if err != nil {
			return ir.DataType{}, errorf(path, "%v", err)
		}
		return t, nil
	}
	name := e.Call
	if name == "" {
		name = e.UDF
	}
	if len(args) == 0 {
		return ir.DataType{}, errorf(path, "%s needs a type", name)
	}
	t := args[0].Type()
	for _, a := range args[1:] {
		if a.Type() != t {
			return ir.DataType{}, errorf(path, "%s mixes %s and %s; declare its type", name, t, a.Type())
		}
	}
	return t, nil
}

func nullable(e *Expr, inferred bool) bool {
	if e.Nullable != nil {
		return *e.Nullable
	}
	return inferred
}
