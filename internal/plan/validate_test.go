package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/ir"
)

func TestValidate_WellFormedPlan(t *testing.T) {
	scan := usersScan()
	root := &Project{
		Columns: []NamedExpr{{Name: "id", Expr: Col(scan.Columns, 0)}},
		Child: &Filter{
			Cond:  eq(Col(scan.Columns, 0), Lit(ir.IntValue(7), ir.Long)),
			Child: scan,
		},
	}

	result := Validate(root)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_ColumnOutOfRange(t *testing.T) {
	root := &Project{
		Columns: []NamedExpr{{Name: "x", Expr: &ColumnRef{Index: 5, Name: "x", DataType: ir.Long}}},
		Child:   usersScan(),
	}

	result := Validate(root)

	assert.False(t, result.Valid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "out of range")
	assert.Contains(t, result.Problems[0], "0:")
}

func TestValidate_ColumnTypeMismatch(t *testing.T) {
	root := &Project{
		Columns: []NamedExpr{{Name: "id", Expr: &ColumnRef{Index: 0, Name: "id", DataType: ir.String}}},
		Child:   usersScan(),
	}

	result := Validate(root)

	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "input column is long")
}

func TestValidate_AggregateOutsideAggregate(t *testing.T) {
	sum := &AggregateCall{Func: "sum", Args: []Expr{Col(usersSchema, 0)}, DataType: ir.Long, IsNullable: true}
	root := &Project{Columns: []NamedExpr{{Name: "s", Expr: sum}}, Child: usersScan()}

	result := Validate(root)

	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "outside aggregate")
}

func TestValidate_AggregateOutputs(t *testing.T) {
	scan := usersScan()
	root := &Aggregate{
		GroupBy: []Expr{Col(scan.Columns, 1)},
		Outputs: []NamedExpr{
			{Name: "name", Expr: Col(scan.Columns, 1)},
			{Name: "n", Expr: &AggregateCall{Func: "count", DataType: ir.Long}},
		},
		Child: scan,
	}

	assert.True(t, Validate(root).Valid)
}

func TestValidate_WindowRequiresWindowCalls(t *testing.T) {
	root := &Window{
		Exprs: []NamedExpr{{Name: "x", Expr: Col(usersSchema, 0)}},
		Child: usersScan(),
	}

	result := Validate(root)

	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "not a window function")
}

func TestValidate_JoinConditions(t *testing.T) {
	cross := &Join{Left: usersScan(), Right: reviewsScan(), Type: JoinCross,
		Cond: Lit(ir.BoolValue(true), ir.Boolean)}
	inner := &Join{Left: usersScan(), Right: reviewsScan(), Type: JoinInner}

	crossResult := Validate(cross)
	innerResult := Validate(inner)

	require.Len(t, crossResult.Problems, 1)
	assert.Contains(t, crossResult.Problems[0], "cross join with condition")
	require.Len(t, innerResult.Problems, 1)
	assert.Contains(t, innerResult.Problems[0], "inner join without condition")
}

func TestValidate_NegativeLimit(t *testing.T) {
	result := Validate(&Limit{Count: -1, Offset: -2, Child: usersScan()})

	assert.Len(t, result.Problems, 2)
}

func TestValidate_SetOpArity(t *testing.T) {
	root := &SetOp{Kind: Union, Inputs: []Operator{usersScan(), &Scan{
		Table:   TableRef{Name: "ids"},
		Columns: Schema{{Name: "id", Type: ir.Long}},
	}}}

	result := Validate(root)

	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "0.1:")
	assert.Contains(t, result.Problems[0], "has 1 columns, want 2")
}

func TestValidate_NilChild(t *testing.T) {
	result := Validate(&Filter{Cond: Lit(ir.BoolValue(true), ir.Boolean)})

	require.Len(t, result.Problems, 1)
	assert.Equal(t, "0.0: nil operator", result.Problems[0])
}

func TestValidate_NonBooleanFilter(t *testing.T) {
	result := Validate(&Filter{Cond: Col(usersSchema, 0), Child: usersScan()})

	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "filter condition has type long")
}
