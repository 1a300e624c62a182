package planfile

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// Catalog supplies scan schemas. *catalog.Catalog implements it.
type Catalog interface {
	Lookup(ref plan.TableRef) (catalog.Binding, bool)
}

// Plan is a decoded plan file.
type Plan struct {
	Name        string
	Description string
	Root        plan.Operator
}

// Error locates a decoding problem by operator path ("0", "0.1", ...).
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("operator %s: %s", e.Path, e.Message)
}

// Load reads and decodes a plan file.
func Load(path string, cat Catalog) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data, cat)
}

// Parse decodes a plan document. Unknown fields are rejected.
func Parse(data []byte, cat Catalog) (*Plan, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if f.Name == "" {
		return nil, &Error{Message: "name is required"}
	}

	d := &planDecoder{cat: cat}
	root, err := d.node(&f.Plan, "0")
	if err != nil {
		return nil, err
	}
	return &Plan{Name: f.Name, Description: f.Description, Root: root}, nil
}

type planDecoder struct {
	cat Catalog
}

func errorf(path, format string, args ...any) *Error {
	return &Error{Path: path, Message: fmt.Sprintf(format, args...)}
}

func (d *planDecoder) node(n *Node, path string) (plan.Operator, error) {
	set := 0
	for _, present := range []bool{
		n.Scan != nil, n.Filter != nil, n.Project != nil, n.Aggregate != nil,
		n.Join != nil, n.Sort != nil, n.Limit != nil, n.Window != nil,
		n.SetOp != nil, n.Local != nil, n.Opaque != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, errorf(path, "want exactly one operator kind, got %d", set)
	}

	switch {
	case n.Scan != nil:
		return d.scan(n.Scan, path)
	case n.Filter != nil:
		child, err := d.node(&n.Filter.Input, plan.ChildPath(path, 0))
		if err != nil {
			return nil, err
		}
		cond, err := d.expr(&n.Filter.Cond, child.Schema(), path)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{Cond: cond, Child: child}, nil
	case n.Project != nil:
		child, err := d.node(&n.Project.Input, plan.ChildPath(path, 0))
		if err != nil {
			return nil, err
		}
		cols, err := d.named(n.Project.Columns, child.Schema(), path)
		if err != nil {
			return nil, err
		}
		return &plan.Project{Columns: cols, Child: child}, nil
	case n.Aggregate != nil:
		child, err := d.node(&n.Aggregate.Input, plan.ChildPath(path, 0))
		if err != nil {
			return nil, err
		}
		keys, err := d.exprs(n.Aggregate.GroupBy, child.Schema(), path)
		if err != nil {
			return nil, err
		}
		outs, err := d.named(n.Aggregate.Outputs, child.Schema(), path)
		if err != nil {
			return nil, err
		}
		return &plan.Aggregate{GroupBy: keys, Outputs: outs, Child: child}, nil
	case n.Join != nil:
		return d.join(n.Join, path)
	case n.Sort != nil:
		child, err := d.node(&n.Sort.Input, plan.ChildPath(path, 0))
		if err != nil {
			return nil, err
		}
		keys, err := d.sortKeys(n.Sort.Keys, child.Schema(), path)
		if err != nil {
			return nil, err
		}
		return &plan.Sort{Keys: keys, Child: child}, nil
	case n.Limit != nil:
		child, err := d.node(&n.Limit.Input, plan.ChildPath(path, 0))
		if err != nil {
			return nil, err
		}
		return &plan.Limit{Count: n.Limit.Count, Offset: n.Limit.Offset, Child: child}, nil
	case n.Window != nil:
		child, err := d.node(&n.Window.Input, plan.ChildPath(path, 0))
		if err != nil {
			return nil, err
		}
		exprs, err := d.named(n.Window.Exprs, child.Schema(), path)
		if err != nil {
			return nil, err
		}
		return &plan.Window{Exprs: exprs, Child: child}, nil
	case n.SetOp != nil:
		kind, err := plan.ParseSetOpKind(n.SetOp.Kind)
		if err != nil {
			return nil, errorf(path, "%v", err)
		}
		inputs, err := d.nodes(n.SetOp.Inputs, path)
		if err != nil {
			return nil, err
		}
		return &plan.SetOp{Kind: kind, Inputs: inputs}, nil
	case n.Local != nil:
		return d.local(n.Local, path)
	default:
		cols, err := columns(n.Opaque.Columns, path)
		if err != nil {
			return nil, err
		}
		inputs, err := d.nodes(n.Opaque.Inputs, path)
		if err != nil {
			return nil, err
		}
		return &plan.Opaque{Name: n.Opaque.Name, Columns: cols, Inputs: inputs}, nil
	}
}

func (d *planDecoder) nodes(ns []Node, path string) ([]plan.Operator, error) {
	out := make([]plan.Operator, len(ns))
	for i := range ns {
		op, err := d.node(&ns[i], plan.ChildPath(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

func (d *planDecoder) scan(s *ScanNode, path string) (plan.Operator, error) {
	ref := plan.TableRef{Database: s.Database, Name: s.Table}
	if s.Table == "" {
		return nil, errorf(path, "scan without table")
	}
	b, ok := d.cat.Lookup(ref)
	if !ok {
		return nil, errorf(path, "unknown table %s", ref)
	}
	if len(s.Columns) == 0 {
		return &plan.Scan{Table: ref, Columns: b.Columns}, nil
	}
	cols := make(plan.Schema, len(s.Columns))
	for i, name := range s.Columns {
		j := b.Columns.Index(name)
		if j < 0 {
			return nil, errorf(path, "table %s has no column %q", ref, name)
		}
		cols[i] = b.Columns[j]
	}
	return &plan.Scan{Table: ref, Columns: cols}, nil
}

func (d *planDecoder) join(j *JoinNode, path string) (plan.Operator, error) {
	typ, err := plan.ParseJoinType(j.Type)
	if err != nil {
		return nil, errorf(path, "%v", err)
	}
	left, err := d.node(&j.Left, plan.ChildPath(path, 0))
	if err != nil {
		return nil, err
	}
	right, err := d.node(&j.Right, plan.ChildPath(path, 1))
	if err != nil {
		return nil, err
	}
	op := &plan.Join{Left: left, Right: right, Type: typ}
	if j.Cond != nil {
		cond, err := d.expr(j.Cond, op.InputSchema(), path)
		if err != nil {
			return nil, err
		}
		op.Cond = cond
	}
	return op, nil
}

func (d *planDecoder) local(l *LocalNode, path string) (plan.Operator, error) {
	cols, err := columns(l.Columns, path)
	if err != nil {
		return nil, err
	}
	rows := make([][]ir.Value, len(l.Rows))
	for i, row := range l.Rows {
		if len(row) != len(cols) {
			return nil, errorf(path, "row %d has %d values, want %d", i, len(row), len(cols))
		}
		rows[i] = make([]ir.Value, len(row))
		for j := range row {
			v, err := parseValue(&row[j], cols[j].Type)
			if err != nil {
				return nil, errorf(path, "row %d column %q: %v", i, cols[j].Name, err)
			}
			rows[i][j] = v
		}
	}
	return &plan.LocalRelation{Name: l.Name, Columns: cols, Rows: rows}, nil
}

func columns(cs []Column, path string) (plan.Schema, error) {
	out := make(plan.Schema, len(cs))
	for i, c := range cs {
		t, err := ir.ParseType(c.Type)
		if err != nil {
			return nil, errorf(path, "column %q: %v", c.Name, err)
		}
		out[i] = plan.Column{Name: c.Name, Type: t, Nullable: c.Nullable}
	}
	return out, nil
}

func (d *planDecoder) named(ns []NamedExpr, in plan.Schema, path string) ([]plan.NamedExpr, error) {
	out := make([]plan.NamedExpr, len(ns))
	for i := range ns {
		e, err := d.expr(&ns[i].Expr, in, path)
		if err != nil {
			return nil, err
		}
		out[i] = plan.NamedExpr{Name: ns[i].Name, Expr: e}
	}
	return out, nil
}

func (d *planDecoder) sortKeys(ks []SortKey, in plan.Schema, path string) ([]plan.SortKey, error) {
	out := make([]plan.SortKey, len(ks))
	for i := range ks {
		e, err := d.expr(&ks[i].Expr, in, path)
		if err != nil {
			return nil, err
		}
		nullsFirst := plan.DefaultNullsFirst(ks[i].Desc)
		if ks[i].NullsFirst != nil {
			nullsFirst = *ks[i].NullsFirst
		}
		out[i] = plan.SortKey{Expr: e, Descending: ks[i].Desc, NullsFirst: nullsFirst}
	}
	return out, nil
}
