package plan

import (
	"fmt"
	"strings"

	"github.com/roach88/pushdown/internal/ir"
)

// Operator is a node of the logical plan.
//
// This is a sealed interface - only types in this package implement it.
//
// Operator types:
//   - Scan: a table of a configured store
//   - Filter, Project, Aggregate, Sort, Limit, Window: unary relational operators
//   - Join: a binary join
//   - SetOp: UNION [ALL], INTERSECT, EXCEPT over two or more inputs
//   - LocalRelation: rows held by the host
//   - Opaque: a host operator the compiler does not understand
//   - Pushed: a subtree already compiled to SQL
type Operator interface {
	fmt.Stringer
	Schema() Schema
	Children() []Operator
	opNode() // Marker method - seals interface to this package
}

// TableRef names a table. Database may be empty, in which case the
// connection's default database is used.
type TableRef struct {
	Database string
	Name     string
}

func (t TableRef) String() string {
	if t.Database == "" {
		return t.Name
	}
	return t.Database + "." + t.Name
}

// Scan reads a store table. Columns is the projected subset of the table's
// columns in output order.
type Scan struct {
	Table   TableRef
	Columns Schema
}

func (*Scan) opNode()              {}
func (s *Scan) Schema() Schema     { return s.Columns }
func (*Scan) Children() []Operator { return nil }
func (s *Scan) String() string     { return fmt.Sprintf("Scan table=%s columns=%s", s.Table, s.Columns) }

// Filter keeps rows where Cond is true.
type Filter struct {
	Cond  Expr
	Child Operator
}

func (*Filter) opNode()                {}
func (f *Filter) Schema() Schema       { return f.Child.Schema() }
func (f *Filter) Children() []Operator { return []Operator{f.Child} }
func (f *Filter) String() string       { return "Filter cond=" + exprString(f.Cond) }

// Project computes Columns from each input row.
type Project struct {
	Columns []NamedExpr
	Child   Operator
}

func (*Project) opNode()                {}
func (p *Project) Schema() Schema       { return namedSchema(p.Columns) }
func (p *Project) Children() []Operator { return []Operator{p.Child} }
func (p *Project) String() string       { return "Project columns=[" + joinNamed(p.Columns) + "]" }

// Aggregate groups input rows by GroupBy and computes Outputs per group.
// Outputs may reference grouping expressions and aggregate calls over input
// columns. An empty GroupBy is a global aggregate producing one row.
type Aggregate struct {
	GroupBy []Expr
	Outputs []NamedExpr
	Child   Operator
}

func (*Aggregate) opNode()                {}
func (a *Aggregate) Schema() Schema       { return namedSchema(a.Outputs) }
func (a *Aggregate) Children() []Operator { return []Operator{a.Child} }
func (a *Aggregate) String() string {
	return fmt.Sprintf("Aggregate group_by=[%s] outputs=[%s]", joinExprs(a.GroupBy), joinNamed(a.Outputs))
}

// JoinType is the kind of join.
type JoinType uint8

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinSemi
	JoinAnti
)

var joinTypeNames = map[JoinType]string{
	JoinInner: "inner",
	JoinLeft:  "left",
	JoinRight: "right",
	JoinFull:  "full",
	JoinCross: "cross",
	JoinSemi:  "semi",
	JoinAnti:  "anti",
}

func (t JoinType) String() string {
	if s, ok := joinTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("join(%d)", uint8(t))
}

// ParseJoinType is the inverse of JoinType.String.
func ParseJoinType(s string) (JoinType, error) {
	for t, name := range joinTypeNames {
		if name == strings.ToLower(s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown join type %q", s)
}

// Join combines Left and Right. Cond is bound to the left schema followed
// by the right schema and is nil only for cross joins. Semi and anti joins
// output the left columns only.
type Join struct {
	Left  Operator
	Right Operator
	Cond  Expr
	Type  JoinType
}

func (*Join) opNode() {}
func (j *Join) Schema() Schema {
	l, r := j.Left.Schema(), j.Right.Schema()
	switch j.Type {
	case JoinSemi, JoinAnti:
		return l
	case JoinLeft:
		r = r.Nullable()
	case JoinRight:
		l = l.Nullable()
	case JoinFull:
		l, r = l.Nullable(), r.Nullable()
	}
	out := make(Schema, 0, len(l)+len(r))
	out = append(out, l...)
	return append(out, r...)
}
func (j *Join) Children() []Operator { return []Operator{j.Left, j.Right} }
func (j *Join) String() string {
	s := "Join type=" + j.Type.String()
	if j.Cond != nil {
		s += " cond=" + j.Cond.String()
	}
	return s
}

// InputSchema returns the schema Cond is bound to.
func (j *Join) InputSchema() Schema {
	l, r := j.Left.Schema(), j.Right.Schema()
	out := make(Schema, 0, len(l)+len(r))
	out = append(out, l...)
	return append(out, r...)
}

// Sort orders rows by Keys.
type Sort struct {
	Keys  []SortKey
	Child Operator
}

func (*Sort) opNode()                {}
func (s *Sort) Schema() Schema       { return s.Child.Schema() }
func (s *Sort) Children() []Operator { return []Operator{s.Child} }
func (s *Sort) String() string       { return "Sort keys=[" + joinKeys(s.Keys) + "]" }

// Limit returns at most Count rows after skipping Offset rows.
type Limit struct {
	Count  int64
	Offset int64
	Child  Operator
}

func (*Limit) opNode()                {}
func (l *Limit) Schema() Schema       { return l.Child.Schema() }
func (l *Limit) Children() []Operator { return []Operator{l.Child} }
func (l *Limit) String() string {
	if l.Offset > 0 {
		return fmt.Sprintf("Limit count=%d offset=%d", l.Count, l.Offset)
	}
	return fmt.Sprintf("Limit count=%d", l.Count)
}

// Window appends one column per window expression to the input columns.
// Every Exprs entry must be a *WindowCall.
type Window struct {
	Exprs []NamedExpr
	Child Operator
}

func (*Window) opNode() {}
func (w *Window) Schema() Schema {
	in := w.Child.Schema()
	out := make(Schema, 0, len(in)+len(w.Exprs))
	out = append(out, in...)
	return append(out, namedSchema(w.Exprs)...)
}
func (w *Window) Children() []Operator { return []Operator{w.Child} }
func (w *Window) String() string       { return "Window exprs=[" + joinNamed(w.Exprs) + "]" }

// SetOpKind is the kind of set operation.
type SetOpKind uint8

const (
	UnionAll SetOpKind = iota
	Union
	Intersect
	Except
)

var setOpNames = map[SetOpKind]string{
	UnionAll:  "union_all",
	Union:     "union",
	Intersect: "intersect",
	Except:    "except",
}

func (k SetOpKind) String() string {
	if s, ok := setOpNames[k]; ok {
		return s
	}
	return fmt.Sprintf("setop(%d)", uint8(k))
}

// ParseSetOpKind is the inverse of SetOpKind.String.
func ParseSetOpKind(s string) (SetOpKind, error) {
	for k, name := range setOpNames {
		if name == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown set operation %q", s)
}

// SetOp combines the rows of Inputs. Output names and types come from the
// first input; a column is nullable if it is nullable in any input.
type SetOp struct {
	Kind   SetOpKind
	Inputs []Operator
}

func (*SetOp) opNode() {}
func (s *SetOp) Schema() Schema {
	if len(s.Inputs) == 0 {
		return nil
	}
	out := append(Schema(nil), s.Inputs[0].Schema()...)
	for _, in := range s.Inputs[1:] {
		for i, c := range in.Schema() {
			if i < len(out) && c.Nullable {
				out[i].Nullable = true
			}
		}
	}
	return out
}
func (s *SetOp) Children() []Operator { return s.Inputs }
func (s *SetOp) String() string       { return "SetOp kind=" + s.Kind.String() }

// LocalRelation is a relation materialized on the host.
type LocalRelation struct {
	Name    string
	Columns Schema
	Rows    [][]ir.Value
}

func (*LocalRelation) opNode()              {}
func (l *LocalRelation) Schema() Schema     { return l.Columns }
func (*LocalRelation) Children() []Operator { return nil }
func (l *LocalRelation) String() string {
	return fmt.Sprintf("LocalRelation name=%s rows=%d", l.Name, len(l.Rows))
}

// Opaque is a host operator the compiler cannot translate. Its inputs can
// still be pushed independently.
type Opaque struct {
	Name    string
	Columns Schema
	Inputs  []Operator
}

func (*Opaque) opNode()                {}
func (o *Opaque) Schema() Schema       { return o.Columns }
func (o *Opaque) Children() []Operator { return o.Inputs }
func (o *Opaque) String() string       { return "Opaque name=" + o.Name }

// Pushed is a leaf standing in for a subtree compiled to SQL.
type Pushed struct {
	Relation *Relation
}

func (*Pushed) opNode()              {}
func (p *Pushed) Schema() Schema     { return p.Relation.Columns }
func (*Pushed) Children() []Operator { return nil }
func (p *Pushed) String() string {
	return fmt.Sprintf("Pushed relation=%s mode=%s", p.Relation.ID, p.Relation.ReadMode)
}

// WithChildren returns a copy of op with its children replaced. It panics
// if the number of children does not match, which indicates a bug in the
// caller.
func WithChildren(op Operator, children []Operator) Operator {
	if len(children) != len(op.Children()) {
		panic(fmt.Sprintf("plan: %T expects %d children, got %d", op, len(op.Children()), len(children)))
	}
	switch op := op.(type) {
	case *Filter:
		c := *op
		c.Child = children[0]
		return &c
	case *Project:
		c := *op
		c.Child = children[0]
		return &c
	case *Aggregate:
		c := *op
		c.Child = children[0]
		return &c
	case *Join:
		c := *op
		c.Left, c.Right = children[0], children[1]
		return &c
	case *Sort:
		c := *op
		c.Child = children[0]
		return &c
	case *Limit:
		c := *op
		c.Child = children[0]
		return &c
	case *Window:
		c := *op
		c.Child = children[0]
		return &c
	case *SetOp:
		c := *op
		c.Inputs = append([]Operator(nil), children...)
		return &c
	case *Opaque:
		c := *op
		c.Inputs = append([]Operator(nil), children...)
		return &c
	}
	// Leaves have no children to replace.
	return op
}

// Size returns the number of operators in the tree rooted at op.
func Size(op Operator) int {
	n := 1
	for _, c := range op.Children() {
		n += Size(c)
	}
	return n
}

// ChildIDs returns the pre-order IDs of op's children given op's own ID.
func ChildIDs(op Operator, id int) []int {
	children := op.Children()
	ids := make([]int, len(children))
	next := id + 1
	for i, c := range children {
		ids[i] = next
		next += Size(c)
	}
	return ids
}

// ChildPath returns the path of the i-th child of the node at path. The
// root's path is "0".
func ChildPath(path string, i int) string {
	return fmt.Sprintf("%s.%d", path, i)
}

// Walk visits op and its descendants in pre-order, passing each node's
// pre-order ID and path. Returning false from fn skips that node's
// children.
func Walk(op Operator, fn func(op Operator, id int, path string) bool) {
	walk(op, 0, "0", fn)
}

func walk(op Operator, id int, path string, fn func(Operator, int, string) bool) {
	if !fn(op, id, path) {
		return
	}
	ids := ChildIDs(op, id)
	for i, c := range op.Children() {
		walk(c, ids[i], ChildPath(path, i), fn)
	}
}

func namedSchema(cols []NamedExpr) Schema {
	out := make(Schema, len(cols))
	for i, c := range cols {
		out[i] = Column{Name: c.Name, Type: c.Expr.Type(), Nullable: c.Expr.Nullable()}
	}
	return out
}

func joinNamed(cols []NamedExpr) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func exprString(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}
