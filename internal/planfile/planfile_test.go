package planfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
	"github.com/roach88/pushdown/internal/testutil"
)

var cat = testutil.Catalog(dialect.V(7, 0, 1), dialect.V(7, 0, 1))

func TestLoad(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "adults.yaml"), cat)
	require.NoError(t, err)

	assert.Equal(t, "adults", p.Name)
	assert.True(t, plan.Validate(p.Root).Valid, plan.Validate(p.Root).Problems)

	project, ok := p.Root.(*plan.Project)
	require.True(t, ok)
	assert.Equal(t, []string{"country", "n", "boost"}, project.Schema().Names())
	assert.True(t, plan.ContainsUDF(project.Columns[2].Expr))

	agg := project.Child.(*plan.Aggregate)
	count := agg.Outputs[1].Expr.(*plan.AggregateCall)
	assert.Equal(t, ir.Long, count.DataType)
	assert.False(t, count.Nullable())

	filter := agg.Child.(*plan.Filter)
	cond := filter.Cond.(*plan.Call)
	assert.Equal(t, ir.Boolean, cond.Type())
	ge := cond.Args[0].(*plan.Call)
	assert.Equal(t, &plan.ColumnRef{Index: 1, Name: "age", DataType: ir.Int, IsNullable: true}, ge.Args[0])
	assert.Equal(t, plan.Lit(ir.IntValue(18), ir.Int), ge.Args[1])

	scan := filter.Child.(*plan.Scan)
	assert.Equal(t, []string{"id", "age", "country"}, scan.Columns.Names())
}

func TestParse_Operators(t *testing.T) {
	src := `
name: mixed
plan:
  limit:
    count: 3
    offset: 1
    input:
      sort:
        keys:
          - expr: {col: stars}
            desc: true
            nulls_first: true
        input:
          join:
            type: semi
            cond: {call: eq, args: [{ord: 0}, {ord: 3}]}
            left:
              scan: {table: reviews}
            right:
              scan: {table: users, columns: [id]}
`
	p, err := Parse([]byte(src), cat)
	require.NoError(t, err)
	require.True(t, plan.Validate(p.Root).Valid, plan.Validate(p.Root).Problems)

	limit := p.Root.(*plan.Limit)
	assert.Equal(t, int64(3), limit.Count)
	assert.Equal(t, int64(1), limit.Offset)
	sort := limit.Child.(*plan.Sort)
	assert.True(t, sort.Keys[0].Descending)
	assert.True(t, sort.Keys[0].NullsFirst)
	join := sort.Child.(*plan.Join)
	assert.Equal(t, plan.JoinSemi, join.Type)
	assert.Equal(t, testutil.Reviews.Names(), join.Schema().Names())
}

func TestParse_WindowAndSetOp(t *testing.T) {
	src := `
name: windows
plan:
  setop:
    kind: union_all
    inputs:
      - window:
          exprs:
            - name: rn
              expr:
                window: row_number
                over:
                  partition_by: [{col: country}]
                  order_by: [{expr: {col: id}}]
            - name: running
              expr:
                agg: sum
                args: [{col: age}]
                over:
                  order_by: [{expr: {col: id}}]
                  frame:
                    kind: rows
                    start: {kind: preceding, offset: 2}
                    end: {kind: current_row}
          input:
            scan: {table: users, columns: [id, age, country]}
      - local:
          columns:
            - {name: id, type: long}
            - {name: age, type: int, nullable: true}
            - {name: country, type: string, nullable: true}
            - {name: rn, type: long}
            - {name: running, type: long, nullable: true}
          rows:
            - [1, 20, "se", 1, 20]
            - [2, ~, ~, 1, ~]
`
	p, err := Parse([]byte(src), cat)
	require.NoError(t, err)
	require.True(t, plan.Validate(p.Root).Valid, plan.Validate(p.Root).Problems)

	set := p.Root.(*plan.SetOp)
	assert.Equal(t, plan.UnionAll, set.Kind)

	w := set.Inputs[0].(*plan.Window)
	rn := w.Exprs[0].Expr.(*plan.WindowCall)
	assert.Equal(t, ir.Long, rn.DataType)
	assert.False(t, rn.Nullable())
	running := w.Exprs[1].Expr.(*plan.WindowCall)
	require.NotNil(t, running.Agg)
	assert.Equal(t, ir.Long, running.DataType)
	require.NotNil(t, running.Spec.Frame)
	assert.Equal(t, plan.Preceding, running.Spec.Frame.Start.Kind)
	assert.Equal(t, plan.Lit(ir.IntValue(2), ir.Long), running.Spec.Frame.Start.Offset)

	local := set.Inputs[1].(*plan.LocalRelation)
	assert.Equal(t, []ir.Value{ir.IntValue(2), ir.NullValue{}, ir.NullValue{}, ir.IntValue(1), ir.NullValue{}}, local.Rows[1])
}

func TestParse_Literals(t *testing.T) {
	src := `
name: literals
plan:
  project:
    columns:
      - {name: i, expr: {lit: 7}}
      - {name: f, expr: {lit: 1.5}}
      - {name: b, expr: {lit: true}}
      - {name: s, expr: {lit: "cafe\u0301"}}
      - {name: d, expr: {lit: "12.50", type: "decimal(4,2)"}}
      - {name: day, expr: {lit: "2024-02-29", type: date}}
      - {name: n, expr: {null: true, type: string}}
    input:
      scan: {table: users, columns: [id]}
`
	p, err := Parse([]byte(src), cat)
	require.NoError(t, err)

	cols := p.Root.(*plan.Project).Columns
	lit := func(i int) *plan.Literal { return cols[i].Expr.(*plan.Literal) }

	assert.Equal(t, plan.Lit(ir.IntValue(7), ir.Long), lit(0))
	assert.Equal(t, plan.Lit(ir.FloatValue(1.5), ir.Double), lit(1))
	assert.Equal(t, plan.Lit(ir.BoolValue(true), ir.Boolean), lit(2))
	// NFC folds e + combining acute into a single code point.
	assert.Equal(t, ir.StringValue("caf\u00e9"), lit(3).Value)
	assert.Equal(t, ir.Decimal(4, 2), lit(4).DataType)
	assert.Equal(t, "12.50", lit(4).Value.(ir.DecimalValue).StringFixed(2))
	assert.Equal(t, ir.Date, lit(5).DataType)
	assert.Equal(t, ir.NullValue{}, lit(6).Value)
	assert.Equal(t, ir.String, lit(6).DataType)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown field",
			src:  "name: x\nplan:\n  scan: {table: users, colums: [id]}\n",
			want: "field colums not found",
		},
		{
			name: "missing name",
			src:  "plan:\n  scan: {table: users}\n",
			want: "name is required",
		},
		{
			name: "two operator kinds",
			src:  "name: x\nplan:\n  scan: {table: users}\n  limit: {count: 1, input: {scan: {table: users}}}\n",
			want: "operator 0: want exactly one operator kind, got 2",
		},
		{
			name: "unknown table",
			src:  "name: x\nplan:\n  limit: {count: 1, input: {scan: {table: nope}}}\n",
			want: "operator 0.0: unknown table nope",
		},
		{
			name: "unknown column",
			src:  "name: x\nplan:\n  filter:\n    cond: {col: missing}\n    input: {scan: {table: users}}\n",
			want: `unknown or ambiguous column "missing"`,
		},
		{
			name: "mixed argument types",
			src:  "name: x\nplan:\n  project:\n    columns: [{name: s, expr: {call: add, args: [{col: id}, {col: age}]}}]\n    input: {scan: {table: users}}\n",
			want: "add mixes long and int; declare its type",
		},
		{
			name: "bad join type",
			src:  "name: x\nplan:\n  join: {type: sideways, left: {scan: {table: users}}, right: {scan: {table: users}}}\n",
			want: `unknown join type "sideways"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), cat)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
