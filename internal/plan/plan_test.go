package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/ir"
)

var usersSchema = Schema{
	{Name: "id", Type: ir.Long},
	{Name: "name", Type: ir.String, Nullable: true},
}

var reviewsSchema = Schema{
	{Name: "user_id", Type: ir.Long},
	{Name: "rating", Type: ir.Int, Nullable: true},
}

func usersScan() *Scan {
	return &Scan{Table: TableRef{Name: "users"}, Columns: usersSchema}
}

func reviewsScan() *Scan {
	return &Scan{Table: TableRef{Database: "app", Name: "reviews"}, Columns: reviewsSchema}
}

func eq(l, r Expr) *Call {
	return &Call{Func: "eq", Args: []Expr{l, r}, DataType: ir.Boolean, IsNullable: l.Nullable() || r.Nullable()}
}

func TestJoinSchema_Nullability(t *testing.T) {
	tests := []struct {
		typ          JoinType
		wantLen      int
		leftNullable bool
		rightNullabe bool
	}{
		{JoinInner, 4, false, false},
		{JoinLeft, 4, false, true},
		{JoinRight, 4, true, false},
		{JoinFull, 4, true, true},
		{JoinSemi, 2, false, false},
		{JoinAnti, 2, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			j := &Join{Left: usersScan(), Right: reviewsScan(), Type: tt.typ}
			s := j.Schema()
			require.Len(t, s, tt.wantLen)
			assert.Equal(t, tt.leftNullable, s[0].Nullable, "left id nullability")
			if tt.wantLen == 4 {
				assert.Equal(t, tt.rightNullabe, s[2].Nullable, "right user_id nullability")
			}
		})
	}
}

func TestJoin_InputSchemaAlwaysConcatenated(t *testing.T) {
	j := &Join{Left: usersScan(), Right: reviewsScan(), Type: JoinSemi}
	assert.Equal(t, []string{"id", "name", "user_id", "rating"}, j.InputSchema().Names())
}

func TestSetOpSchema_NullableIfAnyInputNullable(t *testing.T) {
	a := &LocalRelation{Name: "a", Columns: Schema{{Name: "x", Type: ir.Long}}}
	b := &LocalRelation{Name: "b", Columns: Schema{{Name: "y", Type: ir.Long, Nullable: true}}}
	s := (&SetOp{Kind: UnionAll, Inputs: []Operator{a, b}}).Schema()
	require.Len(t, s, 1)
	assert.Equal(t, "x", s[0].Name)
	assert.True(t, s[0].Nullable)
}

func TestSchemaIndex(t *testing.T) {
	s := Schema{{Name: "a"}, {Name: "b"}, {Name: "a"}}
	assert.Equal(t, 1, s.Index("b"))
	assert.Equal(t, -1, s.Index("a"), "ambiguous")
	assert.Equal(t, -1, s.Index("c"))
}

func TestChildIDs_PreOrder(t *testing.T) {
	// [0] Join
	//   [1] Filter
	//     [2] Scan users
	//   [3] Scan reviews
	scan := usersScan()
	filter := &Filter{Cond: eq(Col(scan.Columns, 0), Lit(ir.IntValue(1), ir.Long)), Child: scan}
	j := &Join{Left: filter, Right: reviewsScan(), Type: JoinCross}

	assert.Equal(t, []int{1, 3}, ChildIDs(j, 0))
	assert.Equal(t, 4, Size(j))

	var visited []string
	Walk(j, func(op Operator, id int, path string) bool {
		visited = append(visited, path)
		return true
	})
	assert.Equal(t, []string{"0", "0.0", "0.0.0", "0.1"}, visited)
}

func TestWithChildren_CopiesNode(t *testing.T) {
	orig := &Limit{Count: 10, Child: usersScan()}
	replacement := reviewsScan()

	got := WithChildren(orig, []Operator{replacement})

	lim, ok := got.(*Limit)
	require.True(t, ok)
	assert.Same(t, replacement, lim.Child)
	assert.Equal(t, int64(10), lim.Count)
	assert.NotSame(t, orig, lim)
	assert.Equal(t, "users", orig.Child.(*Scan).Table.Name, "original untouched")
}

func TestWithChildren_WrongArityPanics(t *testing.T) {
	assert.Panics(t, func() {
		WithChildren(&Limit{Count: 1, Child: usersScan()}, nil)
	})
}

func TestContainsUDF(t *testing.T) {
	udf := &UDF{Name: "score", Args: []Expr{Col(usersSchema, 0)}, DataType: ir.Double}
	nested := &Cast{Child: &Call{Func: "abs", Args: []Expr{udf}, DataType: ir.Double}, To: ir.String}

	assert.True(t, ContainsUDF(nested))
	assert.False(t, ContainsUDF(Col(usersSchema, 0)))
}

func TestDefaultNullOrdering(t *testing.T) {
	assert.True(t, Asc(Col(usersSchema, 0)).NullsFirst)
	assert.False(t, Desc(Col(usersSchema, 0)).NullsFirst)
	assert.True(t, DefaultNullsFirst(false))
	assert.False(t, DefaultNullsFirst(true))
}

func TestPrintAsTree(t *testing.T) {
	scan := usersScan()
	root := &Limit{
		Count: 10,
		Child: &Sort{Keys: []SortKey{Asc(Col(scan.Columns, 0))}, Child: scan},
	}

	want := "[0] Limit count=10\n" +
		"└── [1] Sort keys=[#0:id asc nulls first]\n" +
		"    └── [2] Scan table=users columns=(id long not null, name string)\n"
	assert.Equal(t, want, PrintAsTree(root))
}
