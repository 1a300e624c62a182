package plan

import (
	"fmt"
	"strings"

	"github.com/roach88/pushdown/internal/ir"
)

// Expr is a scalar, aggregate or window expression.
//
// This is a sealed interface - only types in this package implement it.
//
// Expression types:
//   - Literal: a typed constant
//   - ColumnRef: an input column, bound by ordinal
//   - Call: a built-in scalar function or operator
//   - Cast: a type conversion
//   - Case: CASE WHEN ... THEN ... ELSE ... END
//   - In: membership test against a literal list
//   - AggregateCall: an aggregate function (Aggregate outputs only)
//   - WindowCall: a window function (Window outputs only)
//   - UDF: a host-defined function the store cannot evaluate
type Expr interface {
	fmt.Stringer
	Type() ir.DataType
	Nullable() bool
	exprNode() // Marker method - seals interface to this package
}

// Literal is a typed constant. A NullValue literal is a typed NULL.
type Literal struct {
	Value    ir.Value
	DataType ir.DataType
}

func (*Literal) exprNode()           {}
func (l *Literal) Type() ir.DataType { return l.DataType }
func (l *Literal) Nullable() bool {
	_, isNull := l.Value.(ir.NullValue)
	return isNull
}
func (l *Literal) String() string {
	if l.Value == nil {
		return "<nil>"
	}
	return l.Value.String() + ":" + l.DataType.String()
}

// Lit builds a literal from a value and type.
func Lit(v ir.Value, t ir.DataType) *Literal {
	return &Literal{Value: v, DataType: t}
}

// ColumnRef refers to column Index of the owning operator's input schema.
type ColumnRef struct {
	Index      int
	Name       string
	DataType   ir.DataType
	IsNullable bool
}

func (*ColumnRef) exprNode()           {}
func (c *ColumnRef) Type() ir.DataType { return c.DataType }
func (c *ColumnRef) Nullable() bool    { return c.IsNullable }
func (c *ColumnRef) String() string    { return fmt.Sprintf("#%d:%s", c.Index, c.Name) }

// Col builds a reference to column i of s.
func Col(s Schema, i int) *ColumnRef {
	c := s[i]
	return &ColumnRef{Index: i, Name: c.Name, DataType: c.Type, IsNullable: c.Nullable}
}

// Call applies a built-in function. Func is the lower-case host function
// name, e.g. "eq", "add", "substring".
type Call struct {
	Func       string
	Args       []Expr
	DataType   ir.DataType
	IsNullable bool
}

func (*Call) exprNode()           {}
func (c *Call) Type() ir.DataType { return c.DataType }
func (c *Call) Nullable() bool    { return c.IsNullable }
func (c *Call) String() string    { return c.Func + "(" + joinExprs(c.Args) + ")" }

// Cast converts Child to To.
type Cast struct {
	Child Expr
	To    ir.DataType
}

func (*Cast) exprNode()           {}
func (c *Cast) Type() ir.DataType { return c.To }
func (c *Cast) Nullable() bool    { return c.Child.Nullable() }
func (c *Cast) String() string    { return fmt.Sprintf("cast(%s as %s)", c.Child, c.To) }

// When is one branch of a Case.
type When struct {
	Cond Expr
	Then Expr
}

// Case evaluates the first branch whose Cond is true, else Else. A nil Else
// yields NULL.
type Case struct {
	Whens    []When
	Else     Expr
	DataType ir.DataType
}

func (*Case) exprNode()           {}
func (c *Case) Type() ir.DataType { return c.DataType }
func (c *Case) Nullable() bool {
	if c.Else == nil || c.Else.Nullable() {
		return true
	}
	for _, w := range c.Whens {
		if w.Then.Nullable() {
			return true
		}
	}
	return false
}
func (c *Case) String() string {
	var b strings.Builder
	b.WriteString("case(")
	for i, w := range c.Whens {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "when %s then %s", w.Cond, w.Then)
	}
	if c.Else != nil {
		fmt.Fprintf(&b, ", else %s", c.Else)
	}
	b.WriteString(")")
	return b.String()
}

// In tests Child against a list of expressions.
type In struct {
	Child   Expr
	List    []Expr
	Negated bool
}

func (*In) exprNode()         {}
func (*In) Type() ir.DataType { return ir.Boolean }
func (i *In) Nullable() bool {
	if i.Child.Nullable() {
		return true
	}
	for _, e := range i.List {
		if e.Nullable() {
			return true
		}
	}
	return false
}
func (i *In) String() string {
	op := "in"
	if i.Negated {
		op = "not_in"
	}
	return fmt.Sprintf("%s(%s, [%s])", op, i.Child, joinExprs(i.List))
}

// AggregateCall is an aggregate function. COUNT(*) is Func "count" with no
// arguments. Filter, when set, restricts the rows the aggregate sees.
type AggregateCall struct {
	Func       string
	Args       []Expr
	Distinct   bool
	Filter     Expr
	DataType   ir.DataType
	IsNullable bool
}

func (*AggregateCall) exprNode()           {}
func (a *AggregateCall) Type() ir.DataType { return a.DataType }
func (a *AggregateCall) Nullable() bool    { return a.IsNullable }
func (a *AggregateCall) String() string {
	args := joinExprs(a.Args)
	if len(a.Args) == 0 && a.Func == "count" {
		args = "*"
	}
	if a.Distinct {
		args = "distinct " + args
	}
	s := a.Func + "(" + args + ")"
	if a.Filter != nil {
		s += " filter(" + a.Filter.String() + ")"
	}
	return s
}

// FrameKind distinguishes ROWS and RANGE window frames.
type FrameKind uint8

const (
	FrameRows FrameKind = iota
	FrameRange
)

func (k FrameKind) String() string {
	if k == FrameRange {
		return "range"
	}
	return "rows"
}

// BoundKind identifies a window frame boundary.
type BoundKind uint8

const (
	UnboundedPreceding BoundKind = iota
	Preceding
	CurrentRow
	Following
	UnboundedFollowing
)

// Bound is a window frame boundary. Offset is only meaningful for Preceding
// and Following and must be a literal.
type Bound struct {
	Kind   BoundKind
	Offset Expr
}

func (b Bound) String() string {
	switch b.Kind {
	case UnboundedPreceding:
		return "unbounded preceding"
	case Preceding:
		return fmt.Sprintf("%s preceding", b.Offset)
	case CurrentRow:
		return "current row"
	case Following:
		return fmt.Sprintf("%s following", b.Offset)
	case UnboundedFollowing:
		return "unbounded following"
	}
	return "invalid"
}

// Frame is an explicit window frame.
type Frame struct {
	Kind  FrameKind
	Start Bound
	End   Bound
}

// WindowSpec is the OVER clause of a window function. A nil Frame means the
// host default frame.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []SortKey
	Frame       *Frame
}

// WindowCall is a window function. Either Func names a ranking or offset
// function (row_number, rank, dense_rank, ntile, percent_rank, lag, lead)
// with Args, or Agg holds an aggregate evaluated over the window.
type WindowCall struct {
	Func       string
	Args       []Expr
	Agg        *AggregateCall
	Spec       WindowSpec
	DataType   ir.DataType
	IsNullable bool
}

func (*WindowCall) exprNode()           {}
func (w *WindowCall) Type() ir.DataType { return w.DataType }
func (w *WindowCall) Nullable() bool    { return w.IsNullable }
func (w *WindowCall) String() string {
	var head string
	if w.Agg != nil {
		head = w.Agg.String()
	} else {
		head = w.Func + "(" + joinExprs(w.Args) + ")"
	}
	var parts []string
	if len(w.Spec.PartitionBy) > 0 {
		parts = append(parts, "partition by "+joinExprs(w.Spec.PartitionBy))
	}
	if len(w.Spec.OrderBy) > 0 {
		parts = append(parts, "order by "+joinKeys(w.Spec.OrderBy))
	}
	if f := w.Spec.Frame; f != nil {
		parts = append(parts, fmt.Sprintf("%s between %s and %s", f.Kind, f.Start, f.End))
	}
	return head + " over(" + strings.Join(parts, " ") + ")"
}

// UDF is a host user-defined function. It is never translatable.
type UDF struct {
	Name       string
	Args       []Expr
	DataType   ir.DataType
	IsNullable bool
}

func (*UDF) exprNode()           {}
func (u *UDF) Type() ir.DataType { return u.DataType }
func (u *UDF) Nullable() bool    { return u.IsNullable }
func (u *UDF) String() string    { return "udf:" + u.Name + "(" + joinExprs(u.Args) + ")" }

// NamedExpr is an output column definition.
type NamedExpr struct {
	Name string
	Expr Expr
}

func (n NamedExpr) String() string { return n.Expr.String() + " AS " + n.Name }

// SortKey is one ORDER BY key.
type SortKey struct {
	Expr       Expr
	Descending bool
	NullsFirst bool
}

// DefaultNullsFirst returns the host's null ordering for a direction:
// nulls first when ascending, nulls last when descending.
func DefaultNullsFirst(descending bool) bool {
	return !descending
}

// Asc builds an ascending key with default null ordering.
func Asc(e Expr) SortKey { return SortKey{Expr: e, NullsFirst: true} }

// Desc builds a descending key with default null ordering.
func Desc(e Expr) SortKey { return SortKey{Expr: e, Descending: true} }

func (k SortKey) String() string {
	dir := "asc"
	if k.Descending {
		dir = "desc"
	}
	nulls := "nulls last"
	if k.NullsFirst {
		nulls = "nulls first"
	}
	return fmt.Sprintf("%s %s %s", k.Expr, dir, nulls)
}

// ExprChildren returns the direct sub-expressions of e in evaluation order.
func ExprChildren(e Expr) []Expr {
	switch e := e.(type) {
	case *Call:
		return e.Args
	case *Cast:
		return []Expr{e.Child}
	case *Case:
		out := make([]Expr, 0, 2*len(e.Whens)+1)
		for _, w := range e.Whens {
			out = append(out, w.Cond, w.Then)
		}
		if e.Else != nil {
			out = append(out, e.Else)
		}
		return out
	case *In:
		return append([]Expr{e.Child}, e.List...)
	case *AggregateCall:
		out := append([]Expr(nil), e.Args...)
		if e.Filter != nil {
			out = append(out, e.Filter)
		}
		return out
	case *WindowCall:
		var out []Expr
		if e.Agg != nil {
			out = append(out, e.Agg)
		}
		out = append(out, e.Args...)
		out = append(out, e.Spec.PartitionBy...)
		for _, k := range e.Spec.OrderBy {
			out = append(out, k.Expr)
		}
		return out
	case *UDF:
		return e.Args
	}
	return nil
}

// WalkExpr calls fn for e and each descendant in pre-order. Returning false
// from fn skips the node's children.
func WalkExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range ExprChildren(e) {
		WalkExpr(c, fn)
	}
}

// ContainsUDF reports whether e references a UDF anywhere.
func ContainsUDF(e Expr) bool {
	found := false
	WalkExpr(e, func(x Expr) bool {
		if _, ok := x.(*UDF); ok {
			found = true
		}
		return !found
	})
	return found
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func joinKeys(ks []SortKey) string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}
