package plan

import (
	"fmt"

	"github.com/roach88/pushdown/internal/ir"
)

// ValidationResult lists structural problems found in a plan.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems are human-readable descriptions prefixed with the path of
	// the offending operator.
	Problems []string
}

// Validate checks that a plan is well formed: every operator has its
// children, every column reference is in range and agrees with the input
// schema, and aggregate or window calls appear only where they can be
// evaluated.
//
// A plan that fails validation is a caller bug, not an untranslatable
// construct. Validate is a pure function with no side effects.
func Validate(root Operator) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateOp(root, "0")
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(path, format string, args ...any) {
	v.problems = append(v.problems, path+": "+fmt.Sprintf(format, args...))
}

// exprContext controls which expression kinds are legal at a position.
type exprContext uint8

const (
	ctxScalar exprContext = iota
	ctxAggregate
	ctxWindow
)

func (v *validator) validateOp(op Operator, path string) {
	if op == nil {
		v.addProblem(path, "nil operator")
		return
	}
	for i, c := range op.Children() {
		if c == nil {
			v.addProblem(ChildPath(path, i), "nil operator")
			return
		}
	}

	switch op := op.(type) {
	case *Scan:
		if op.Table.Name == "" {
			v.addProblem(path, "scan without table name")
		}
		if len(op.Columns) == 0 {
			v.addProblem(path, "scan of %s projects no columns", op.Table)
		}
		v.validateSchema(path, op.Columns)
	case *Filter:
		in := op.Child.Schema()
		v.validateExpr(path, op.Cond, in, ctxScalar)
		if op.Cond != nil && op.Cond.Type().Kind != ir.KindBoolean {
			v.addProblem(path, "filter condition has type %s", op.Cond.Type())
		}
	case *Project:
		if len(op.Columns) == 0 {
			v.addProblem(path, "project without columns")
		}
		in := op.Child.Schema()
		for _, c := range op.Columns {
			v.validateNamed(path, c, in, ctxScalar)
		}
	case *Aggregate:
		if len(op.Outputs) == 0 {
			v.addProblem(path, "aggregate without outputs")
		}
		in := op.Child.Schema()
		for _, g := range op.GroupBy {
			v.validateExpr(path, g, in, ctxScalar)
		}
		for _, c := range op.Outputs {
			v.validateNamed(path, c, in, ctxAggregate)
		}
	case *Join:
		in := op.InputSchema()
		if op.Type == JoinCross {
			if op.Cond != nil {
				v.addProblem(path, "cross join with condition")
			}
		} else if op.Cond == nil {
			v.addProblem(path, "%s join without condition", op.Type)
		} else {
			v.validateExpr(path, op.Cond, in, ctxScalar)
			if op.Cond.Type().Kind != ir.KindBoolean {
				v.addProblem(path, "join condition has type %s", op.Cond.Type())
			}
		}
	case *Sort:
		if len(op.Keys) == 0 {
			v.addProblem(path, "sort without keys")
		}
		in := op.Child.Schema()
		for _, k := range op.Keys {
			v.validateExpr(path, k.Expr, in, ctxScalar)
		}
	case *Limit:
		if op.Count < 0 {
			v.addProblem(path, "negative limit %d", op.Count)
		}
		if op.Offset < 0 {
			v.addProblem(path, "negative offset %d", op.Offset)
		}
	case *Window:
		if len(op.Exprs) == 0 {
			v.addProblem(path, "window without expressions")
		}
		in := op.Child.Schema()
		for _, c := range op.Exprs {
			if _, ok := c.Expr.(*WindowCall); !ok {
				v.addProblem(path, "window output %q is not a window function", c.Name)
				continue
			}
			v.validateNamed(path, c, in, ctxWindow)
		}
	case *SetOp:
		if len(op.Inputs) < 2 {
			v.addProblem(path, "%s with %d inputs", op.Kind, len(op.Inputs))
			break
		}
		want := len(op.Inputs[0].Schema())
		for i, in := range op.Inputs[1:] {
			if got := len(in.Schema()); got != want {
				v.addProblem(ChildPath(path, i+1), "%s input has %d columns, want %d", op.Kind, got, want)
			}
		}
	case *LocalRelation:
		v.validateSchema(path, op.Columns)
		for i, row := range op.Rows {
			if len(row) != len(op.Columns) {
				v.addProblem(path, "row %d has %d values, want %d", i, len(row), len(op.Columns))
			}
		}
	case *Opaque:
		v.validateSchema(path, op.Columns)
	case *Pushed:
		if op.Relation == nil {
			v.addProblem(path, "pushed operator without relation")
		}
	default:
		v.addProblem(path, "unknown operator %T", op)
	}

	for i, c := range op.Children() {
		v.validateOp(c, ChildPath(path, i))
	}
}

func (v *validator) validateSchema(path string, s Schema) {
	for i, c := range s {
		if c.Name == "" {
			v.addProblem(path, "column %d has no name", i)
		}
		if !c.Type.IsValid() {
			v.addProblem(path, "column %q has invalid type %s", c.Name, c.Type)
		}
	}
}

func (v *validator) validateNamed(path string, c NamedExpr, in Schema, ctx exprContext) {
	if c.Name == "" {
		v.addProblem(path, "output column without name")
	}
	v.validateExpr(path, c.Expr, in, ctx)
}

func (v *validator) validateExpr(path string, e Expr, in Schema, ctx exprContext) {
	if e == nil {
		v.addProblem(path, "nil expression")
		return
	}
	switch e := e.(type) {
	case *Literal:
		if e.Value == nil {
			v.addProblem(path, "literal without value")
		}
		if !e.DataType.IsValid() {
			v.addProblem(path, "literal %s has invalid type", e)
		}
	case *ColumnRef:
		if e.Index < 0 || e.Index >= len(in) {
			v.addProblem(path, "column %s out of range (input has %d columns)", e, len(in))
			return
		}
		if got := in[e.Index].Type; got != e.DataType {
			v.addProblem(path, "column %s has type %s, input column is %s", e, e.DataType, got)
		}
	case *AggregateCall:
		if ctx != ctxAggregate {
			v.addProblem(path, "aggregate %s outside aggregate", e)
			return
		}
		// Arguments of an aggregate are plain row expressions.
		for _, a := range e.Args {
			v.validateExpr(path, a, in, ctxScalar)
		}
		if e.Filter != nil {
			v.validateExpr(path, e.Filter, in, ctxScalar)
		}
		return
	case *WindowCall:
		if ctx != ctxWindow {
			v.addProblem(path, "window function %s outside window", e)
			return
		}
		if e.Agg == nil && e.Func == "" {
			v.addProblem(path, "window call without function")
		}
		if e.Agg != nil {
			v.validateExpr(path, e.Agg, in, ctxAggregate)
		}
		for _, a := range e.Args {
			v.validateExpr(path, a, in, ctxScalar)
		}
		for _, p := range e.Spec.PartitionBy {
			v.validateExpr(path, p, in, ctxScalar)
		}
		for _, k := range e.Spec.OrderBy {
			v.validateExpr(path, k.Expr, in, ctxScalar)
		}
		return
	case *Case:
		if len(e.Whens) == 0 {
			v.addProblem(path, "case without branches")
		}
	case *Call:
		if e.Func == "" {
			v.addProblem(path, "call without function name")
		}
	}
	for _, c := range ExprChildren(e) {
		v.validateExpr(path, c, in, ctx)
	}
}
