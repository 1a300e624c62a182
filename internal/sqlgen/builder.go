package sqlgen

import (
	"fmt"

	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// Source binds a scanned table to its store.
type Source struct {
	Conn    conn.Identity
	Version dialect.Version
}

// Builder composes relations bottom-up. Each call builds exactly one
// operator from relations already built for its children, so a failure
// marks that operator, and nothing below it, as the fallback boundary.
//
// Builder is stateless and safe for concurrent use.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// DerivedAlias is the alias of the derived table for the operator with
// pre-order ID id.
func DerivedAlias(id int) string {
	return fmt.Sprintf("t%d", id)
}

// Scan builds the leaf relation for a table scan.
//
// Semantics:
//
//	SELECT `c1`, `c2` FROM `db`.`table`
func (b *Builder) Scan(s *plan.Scan, src Source) (*plan.Relation, error) {
	caps := dialect.For(src.Version)
	if !caps.Baseline() {
		return nil, unsupported(KindVersion, "store %s is older than %s", src.Version, dialect.MinimumVersion)
	}
	if !dialect.ValidIdent(s.Table.Name) || (s.Table.Database != "" && !dialect.ValidIdent(s.Table.Database)) {
		return nil, unsupported(KindOperator, "invalid table name %q", s.Table)
	}
	aliases, err := assignAliases(s.Columns.Names())
	if err != nil {
		return nil, err
	}

	var w sqlWriter
	w.write("SELECT ")
	for i, c := range s.Columns {
		if i > 0 {
			w.write(", ")
		}
		w.write(dialect.QuoteIdent(c.Name))
		if aliases[i] != c.Name {
			w.write(" AS " + dialect.QuoteIdent(aliases[i]))
		}
	}
	w.write(" FROM " + dialect.QuoteQualified(s.Table.Database, s.Table.Name))

	return finish(&w, rename(s.Columns, aliases), src.Conn, src.Version, plan.Props{}, nil)
}

// Build builds op, whose pre-order ID is id, over relations already built
// for each of its children. Soft failures are *UnsupportedError; any other
// error means the inputs were inconsistent.
func (b *Builder) Build(op plan.Operator, id int, inputs []*plan.Relation) (*plan.Relation, error) {
	if len(inputs) != len(op.Children()) {
		return nil, fmt.Errorf("build %T: %d inputs for %d children", op, len(inputs), len(op.Children()))
	}
	for i, in := range inputs {
		if in == nil {
			return nil, unsupported(KindOperator, "input %d of %T is not pushed", i, op)
		}
	}
	ids := plan.ChildIDs(op, id)

	switch op := op.(type) {
	case *plan.Filter:
		return b.filter(op, inputs[0], DerivedAlias(ids[0]))
	case *plan.Project:
		return b.project(op, inputs[0], DerivedAlias(ids[0]))
	case *plan.Aggregate:
		return b.aggregate(op, inputs[0], DerivedAlias(ids[0]))
	case *plan.Join:
		return b.join(op, inputs[0], inputs[1], DerivedAlias(ids[0]), DerivedAlias(ids[1]))
	case *plan.Sort:
		return b.sort(op, inputs[0], DerivedAlias(ids[0]))
	case *plan.Limit:
		return b.limit(op, inputs[0], DerivedAlias(ids[0]))
	case *plan.Window:
		return b.window(op, inputs[0], DerivedAlias(ids[0]))
	case *plan.SetOp:
		aliases := make([]string, len(ids))
		for i, cid := range ids {
			aliases[i] = DerivedAlias(cid)
		}
		return b.setOp(op, inputs, aliases)
	case *plan.Pushed:
		return op.Relation, nil
	case *plan.Scan:
		return nil, fmt.Errorf("build: scan of %s needs a source", op.Table)
	case *plan.LocalRelation, *plan.Opaque:
		return nil, unsupported(KindOperator, "%s runs on the host", op)
	default:
		return nil, unsupported(KindOperator, "unknown operator %T", op)
	}
}

func (b *Builder) filter(op *plan.Filter, in *plan.Relation, alias string) (*plan.Relation, error) {
	if in.Props.Ordered && in.Ordering == nil {
		return nil, unsupported(KindOperator, "input order is not expressible")
	}
	tr := translatorFor(in)
	sc := Qualified(alias, in.Columns.Names())
	cond, err := tr.Expr(op.Cond, sc)
	if err != nil {
		return nil, err
	}

	var w sqlWriter
	selectPassThrough(&w, alias, in.Columns)
	fromDerived(&w, in, alias)
	w.write(" WHERE ")
	w.frag(cond)
	if err := reorder(&w, tr, in, sc); err != nil {
		return nil, err
	}
	return finish(&w, in.Columns, in.Conn, in.Version, inherit(in), in.Ordering)
}

func (b *Builder) project(op *plan.Project, in *plan.Relation, alias string) (*plan.Relation, error) {
	tr := translatorFor(in)
	sc := Qualified(alias, in.Columns.Names())
	names := make([]string, len(op.Columns))
	for i, c := range op.Columns {
		names[i] = c.Name
	}
	aliases, err := assignAliases(names)
	if err != nil {
		return nil, err
	}
	items := make([]Fragment, len(op.Columns))
	for i, c := range op.Columns {
		f, err := tr.Expr(c.Expr, sc)
		if err != nil {
			return nil, err
		}
		items[i] = selectItem(f, aliases[i])
	}

	if in.Props.Ordered && in.Ordering == nil {
		return nil, unsupported(KindOperator, "input order is not expressible")
	}
	var w sqlWriter
	w.write("SELECT ")
	w.join(items, ", ")
	fromDerived(&w, in, alias)
	if err := reorder(&w, tr, in, sc); err != nil {
		return nil, err
	}

	props := inherit(in)
	ordering, ok := remapOrdering(in.Ordering, op.Columns)
	if !ok {
		// Still ordered at this level, but on columns the projection drops.
		ordering = nil
	}
	return finish(&w, rename(op.Schema(), aliases), in.Conn, in.Version, props, ordering)
}

func (b *Builder) aggregate(op *plan.Aggregate, in *plan.Relation, alias string) (*plan.Relation, error) {
	tr := translatorFor(in)
	sc := Qualified(alias, in.Columns.Names())
	names := make([]string, len(op.Outputs))
	for i, c := range op.Outputs {
		names[i] = c.Name
	}
	aliases, err := assignAliases(names)
	if err != nil {
		return nil, err
	}
	items := make([]Fragment, len(op.Outputs))
	for i, c := range op.Outputs {
		f, err := tr.Expr(c.Expr, sc)
		if err != nil {
			return nil, err
		}
		items[i] = selectItem(f, aliases[i])
	}
	keys := make([]Fragment, len(op.GroupBy))
	for i, g := range op.GroupBy {
		if _, ok := g.(*plan.Literal); ok {
			// The store reads an integer literal as a column position.
			return nil, unsupported(KindExpression, "constant grouping key %s", g)
		}
		f, err := tr.comparable(g, sc)
		if err != nil {
			return nil, err
		}
		keys[i] = f
	}

	var w sqlWriter
	w.write("SELECT ")
	w.join(items, ", ")
	fromDerived(&w, in, alias)
	if len(keys) > 0 {
		w.write(" GROUP BY ")
		w.join(keys, ", ")
	}

	props := inherit(in)
	props.Ordered = false
	props.GlobalAggregate = props.GlobalAggregate || len(op.GroupBy) == 0
	return finish(&w, rename(op.Schema(), aliases), in.Conn, in.Version, props, nil)
}

var joinKeywords = map[plan.JoinType]string{
	plan.JoinInner: " INNER JOIN ",
	plan.JoinLeft:  " LEFT JOIN ",
	plan.JoinRight: " RIGHT JOIN ",
	plan.JoinFull:  " FULL OUTER JOIN ",
	plan.JoinCross: " CROSS JOIN ",
}

func (b *Builder) join(op *plan.Join, left, right *plan.Relation, la, ra string) (*plan.Relation, error) {
	if !conn.CanCombine(left, right) {
		return nil, unsupported(KindCrossSource, "join of %s and %s", left.Conn, right.Conn)
	}
	if left.Version.Compare(right.Version) != 0 {
		return nil, fmt.Errorf("join: one connection reports versions %s and %s", left.Version, right.Version)
	}
	tr := translatorFor(left)
	if op.Type == plan.JoinFull {
		if err := tr.require(dialect.JoinFullOuter); err != nil {
			return nil, err
		}
	}
	sc := append(Qualified(la, left.Columns.Names()), Qualified(ra, right.Columns.Names())...)
	var cond Fragment
	if op.Cond != nil {
		f, err := tr.Expr(op.Cond, sc)
		if err != nil {
			return nil, err
		}
		cond = f
	}

	props := plan.Props{
		Limited:         left.Props.Limited || right.Props.Limited,
		GlobalAggregate: left.Props.GlobalAggregate || right.Props.GlobalAggregate,
	}

	var w sqlWriter
	switch op.Type {
	case plan.JoinSemi, plan.JoinAnti:
		// Semantics:
		//
		//	SELECT <left> FROM (<left>) AS tL WHERE [NOT] EXISTS
		//	  (SELECT 1 FROM (<right>) AS tR WHERE <cond>)
		selectPassThrough(&w, la, left.Columns)
		fromDerived(&w, left, la)
		if op.Type == plan.JoinAnti {
			w.write(" WHERE NOT EXISTS (SELECT 1")
		} else {
			w.write(" WHERE EXISTS (SELECT 1")
		}
		fromDerived(&w, right, ra)
		w.write(" WHERE ")
		w.frag(cond)
		w.write(")")
		return finish(&w, left.Columns, left.Conn, left.Version, props, nil)
	}

	keyword, ok := joinKeywords[op.Type]
	if !ok {
		return nil, unsupported(KindOperator, "join type %s", op.Type)
	}
	schema := op.Schema()
	aliases, err := assignAliases(schema.Names())
	if err != nil {
		return nil, err
	}
	w.write("SELECT ")
	i := 0
	for _, c := range left.Columns {
		if i > 0 {
			w.write(", ")
		}
		w.write(dialect.QuoteQualified(la, c.Name) + " AS " + dialect.QuoteIdent(aliases[i]))
		i++
	}
	for _, c := range right.Columns {
		w.write(", " + dialect.QuoteQualified(ra, c.Name) + " AS " + dialect.QuoteIdent(aliases[i]))
		i++
	}
	fromDerived(&w, left, la)
	w.write(keyword)
	w.write("(")
	w.frag(Fragment{SQL: right.SQL, Args: right.Args})
	w.write(") AS " + dialect.QuoteIdent(ra))
	if op.Type != plan.JoinCross {
		w.write(" ON ")
		w.frag(cond)
	}
	return finish(&w, rename(schema, aliases), left.Conn, left.Version, props, nil)
}

func (b *Builder) sort(op *plan.Sort, in *plan.Relation, alias string) (*plan.Relation, error) {
	tr := translatorFor(in)
	sc := Qualified(alias, in.Columns.Names())
	keys, err := tr.OrderBy(op.Keys, sc)
	if err != nil {
		return nil, err
	}

	var w sqlWriter
	selectPassThrough(&w, alias, in.Columns)
	fromDerived(&w, in, alias)
	w.write(" ORDER BY ")
	w.frag(keys)

	props := inherit(in)
	props.Ordered = true
	return finish(&w, in.Columns, in.Conn, in.Version, props, op.Keys)
}

func (b *Builder) limit(op *plan.Limit, in *plan.Relation, alias string) (*plan.Relation, error) {
	if in.Props.Ordered && in.Ordering == nil {
		return nil, unsupported(KindOperator, "input order is not expressible")
	}
	tr := translatorFor(in)
	sc := Qualified(alias, in.Columns.Names())

	var w sqlWriter
	selectPassThrough(&w, alias, in.Columns)
	fromDerived(&w, in, alias)
	if err := reorder(&w, tr, in, sc); err != nil {
		return nil, err
	}
	w.writef(" LIMIT %d", op.Count)
	if op.Offset > 0 {
		w.writef(" OFFSET %d", op.Offset)
	}

	props := inherit(in)
	props.Limited = true
	return finish(&w, in.Columns, in.Conn, in.Version, props, in.Ordering)
}

func (b *Builder) window(op *plan.Window, in *plan.Relation, alias string) (*plan.Relation, error) {
	tr := translatorFor(in)
	sc := Qualified(alias, in.Columns.Names())
	schema := op.Schema()
	aliases, err := assignAliases(schema.Names())
	if err != nil {
		return nil, err
	}

	items := make([]Fragment, 0, len(schema))
	for i, c := range in.Columns {
		items = append(items, selectItem(raw(dialect.QuoteQualified(alias, c.Name)), aliases[i]))
	}
	for i, c := range op.Exprs {
		f, err := tr.Expr(c.Expr, sc)
		if err != nil {
			return nil, err
		}
		items = append(items, selectItem(f, aliases[len(in.Columns)+i]))
	}

	var w sqlWriter
	w.write("SELECT ")
	w.join(items, ", ")
	fromDerived(&w, in, alias)

	props := inherit(in)
	props.Ordered = false
	return finish(&w, rename(schema, aliases), in.Conn, in.Version, props, nil)
}

var setOpKeywords = map[plan.SetOpKind]string{
	plan.UnionAll:  " UNION ALL ",
	plan.Union:     " UNION ",
	plan.Intersect: " INTERSECT ",
	plan.Except:    " EXCEPT ",
}

func (b *Builder) setOp(op *plan.SetOp, inputs []*plan.Relation, derived []string) (*plan.Relation, error) {
	if len(inputs) < 2 {
		return nil, unsupported(KindOperator, "%s with %d inputs", op.Kind, len(inputs))
	}
	first := inputs[0]
	for _, in := range inputs[1:] {
		if !conn.CanCombine(first, in) {
			return nil, unsupported(KindCrossSource, "%s of %s and %s", op.Kind, first.Conn, in.Conn)
		}
		if first.Version.Compare(in.Version) != 0 {
			return nil, fmt.Errorf("%s: one connection reports versions %s and %s", op.Kind, first.Version, in.Version)
		}
		if len(in.Columns) != len(first.Columns) {
			return nil, fmt.Errorf("%s: inputs have %d and %d columns", op.Kind, len(first.Columns), len(in.Columns))
		}
		for i, c := range in.Columns {
			if c.Type != first.Columns[i].Type {
				return nil, unsupported(KindOperator, "%s column %d is %s and %s", op.Kind, i, first.Columns[i].Type, c.Type)
			}
		}
	}

	tr := translatorFor(first)
	switch op.Kind {
	case plan.Intersect:
		if err := tr.require(dialect.SetOpIntersect); err != nil {
			return nil, err
		}
	case plan.Except:
		if err := tr.require(dialect.SetOpExcept); err != nil {
			return nil, err
		}
	}
	if op.Kind != plan.UnionAll {
		for _, c := range first.Columns {
			if c.Type.Kind == ir.KindString {
				return nil, unsupported(KindExpression, "%s over string column %q depends on collation", op.Kind, c.Name)
			}
		}
	}
	keyword, ok := setOpKeywords[op.Kind]
	if !ok {
		return nil, unsupported(KindOperator, "set operation %s", op.Kind)
	}

	schema := op.Schema()
	aliases := first.Columns.Names()
	props := plan.Props{}
	var w sqlWriter
	for i, in := range inputs {
		if i > 0 {
			w.write(keyword)
		}
		w.write("SELECT ")
		for j, c := range in.Columns {
			if j > 0 {
				w.write(", ")
			}
			w.write(dialect.QuoteQualified(derived[i], c.Name) + " AS " + dialect.QuoteIdent(aliases[j]))
		}
		fromDerived(&w, in, derived[i])
		props.Limited = props.Limited || in.Props.Limited
		props.GlobalAggregate = props.GlobalAggregate || in.Props.GlobalAggregate
	}
	return finish(&w, rename(schema, aliases), first.Conn, first.Version, props, nil)
}

func translatorFor(r *plan.Relation) *Translator {
	return NewTranslator(dialect.For(r.Version))
}

// inherit carries over everything an order-preserving operator keeps.
func inherit(in *plan.Relation) plan.Props {
	return plan.Props{
		Ordered:         in.Ordering != nil,
		Limited:         in.Props.Limited,
		GlobalAggregate: in.Props.GlobalAggregate,
	}
}

func selectItem(f Fragment, alias string) Fragment {
	return Fragment{SQL: f.SQL + " AS " + dialect.QuoteIdent(alias), Args: f.Args}
}

// selectPassThrough writes SELECT `alias`.`c` AS `c`, ... for every input
// column.
func selectPassThrough(w *sqlWriter, alias string, cols plan.Schema) {
	w.write("SELECT ")
	for i, c := range cols {
		if i > 0 {
			w.write(", ")
		}
		w.write(dialect.QuoteQualified(alias, c.Name) + " AS " + dialect.QuoteIdent(c.Name))
	}
}

func fromDerived(w *sqlWriter, in *plan.Relation, alias string) {
	w.write(" FROM (")
	w.frag(Fragment{SQL: in.SQL, Args: in.Args})
	w.write(") AS " + dialect.QuoteIdent(alias))
}

// reorder re-emits the input's ORDER BY at this level. The store does not
// keep the order of a derived table, so every order-preserving operator
// repeats it.
func reorder(w *sqlWriter, tr *Translator, in *plan.Relation, sc Scope) error {
	if in.Ordering == nil {
		return nil
	}
	keys, err := tr.OrderBy(in.Ordering, sc)
	if err != nil {
		return err
	}
	w.write(" ORDER BY ")
	w.frag(keys)
	return nil
}

// remapOrdering rebinds ordering keys from a projection's input to its
// output. It fails when a key uses a column the projection does not pass
// through unchanged.
func remapOrdering(keys []plan.SortKey, cols []plan.NamedExpr) ([]plan.SortKey, bool) {
	if keys == nil {
		return nil, true
	}
	outs := make(plan.Schema, len(cols))
	position := make(map[int]int, len(cols))
	for i, c := range cols {
		outs[i] = plan.Column{Name: c.Name, Type: c.Expr.Type(), Nullable: c.Expr.Nullable()}
		if ref, ok := c.Expr.(*plan.ColumnRef); ok {
			if _, seen := position[ref.Index]; !seen {
				position[ref.Index] = i
			}
		}
	}
	out := make([]plan.SortKey, len(keys))
	for i, k := range keys {
		e, ok := rebind(k.Expr, position, outs)
		if !ok {
			return nil, false
		}
		out[i] = plan.SortKey{Expr: e, Descending: k.Descending, NullsFirst: k.NullsFirst}
	}
	return out, true
}

// rebind rewrites the column references of a row expression through
// position. Aggregates, windows and UDFs never appear in ordering keys that
// reach this point.
func rebind(e plan.Expr, position map[int]int, outs plan.Schema) (plan.Expr, bool) {
	switch e := e.(type) {
	case *plan.Literal:
		return e, true
	case *plan.ColumnRef:
		i, ok := position[e.Index]
		if !ok {
			return nil, false
		}
		return plan.Col(outs, i), true
	case *plan.Call:
		args, ok := rebindAll(e.Args, position, outs)
		if !ok {
			return nil, false
		}
		c := *e
		c.Args = args
		return &c, true
	case *plan.Cast:
		child, ok := rebind(e.Child, position, outs)
		if !ok {
			return nil, false
		}
		return &plan.Cast{Child: child, To: e.To}, true
	case *plan.In:
		child, ok := rebind(e.Child, position, outs)
		if !ok {
			return nil, false
		}
		list, ok := rebindAll(e.List, position, outs)
		if !ok {
			return nil, false
		}
		return &plan.In{Child: child, List: list, Negated: e.Negated}, true
	case *plan.Case:
		c := &plan.Case{DataType: e.DataType, Whens: make([]plan.When, len(e.Whens))}
		for i, w := range e.Whens {
			cond, ok := rebind(w.Cond, position, outs)
			if !ok {
				return nil, false
			}
			then, ok := rebind(w.Then, position, outs)
			if !ok {
				return nil, false
			}
			c.Whens[i] = plan.When{Cond: cond, Then: then}
		}
		if e.Else != nil {
			els, ok := rebind(e.Else, position, outs)
			if !ok {
				return nil, false
			}
			c.Else = els
		}
		return c, true
	}
	return nil, false
}

func rebindAll(es []plan.Expr, position map[int]int, outs plan.Schema) ([]plan.Expr, bool) {
	out := make([]plan.Expr, len(es))
	for i, e := range es {
		r, ok := rebind(e, position, outs)
		if !ok {
			return nil, false
		}
		out[i] = r
	}
	return out, true
}

// rename returns s with column names replaced by aliases.
func rename(s plan.Schema, aliases []string) plan.Schema {
	out := make(plan.Schema, len(s))
	for i, c := range s {
		c.Name = aliases[i]
		out[i] = c
	}
	return out
}

func finish(w *sqlWriter, cols plan.Schema, id conn.Identity, v dialect.Version, props plan.Props, ordering []plan.SortKey) (*plan.Relation, error) {
	f := w.fragment()
	rid, err := ir.RelationID(f.SQL, f.Args, id.Fingerprint())
	if err != nil {
		return nil, fmt.Errorf("relation id: %w", err)
	}
	props.Ordered = props.Ordered || ordering != nil
	return &plan.Relation{
		ID:       rid,
		SQL:      f.SQL,
		Args:     f.Args,
		Columns:  cols,
		Conn:     id,
		Version:  v,
		Props:    props,
		Ordering: ordering,
	}, nil
}
