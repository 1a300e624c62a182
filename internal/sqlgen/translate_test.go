package sqlgen

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
	"github.com/roach88/pushdown/internal/testutil"
)

var latest = dialect.V(7, 0, 1)

func usersScope() Scope {
	return Qualified("t1", testutil.Users.Names())
}

func col(name string) *plan.ColumnRef {
	return testutil.Ref(testutil.Users, name)
}

func mustDecimal(t *testing.T, s string) ir.DecimalValue {
	t.Helper()
	d, err := ir.NewDecimal(s)
	require.NoError(t, err)
	return d
}

func fn(name string, typ ir.DataType, args ...plan.Expr) *plan.Call {
	return &plan.Call{Func: name, Args: args, DataType: typ, IsNullable: true}
}

// exprCase is one translation expectation. A non-empty kind means the
// expression must be rejected with that kind.
type exprCase struct {
	name    string
	version dialect.Version
	expr    plan.Expr
	sql     string
	args    []any
	kind    UnsupportedKind
	reason  string
}

func runExprCases(t *testing.T, tests []exprCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.version
			if v.IsZero() {
				v = latest
			}
			f, err := NewTranslator(dialect.For(v)).Expr(tt.expr, usersScope())
			if tt.kind != "" {
				require.Error(t, err)
				ue, ok := AsUnsupported(err)
				require.True(t, ok, "want *UnsupportedError, got %T", err)
				assert.Equal(t, tt.kind, ue.Kind)
				if tt.reason != "" {
					assert.Equal(t, tt.reason, ue.Reason)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sql, f.SQL)
			assert.Equal(t, tt.args, f.Args)
		})
	}
}

func TestTranslator_Literals(t *testing.T) {
	runExprCases(t, []exprCase{
		{name: "null", expr: plan.Lit(ir.NullValue{}, ir.Null), sql: "NULL"},
		{name: "true", expr: plan.Lit(ir.BoolValue(true), ir.Boolean), sql: "TRUE"},
		{name: "false", expr: plan.Lit(ir.BoolValue(false), ir.Boolean), sql: "FALSE"},
		{name: "int", expr: testutil.Int(42), sql: "?", args: []any{int64(42)}},
		{name: "string", expr: testutil.Str("a'b"), sql: "?", args: []any{"a'b"}},
		{name: "double", expr: plan.Lit(ir.FloatValue(0.1), ir.Double), sql: "?", args: []any{0.1}},
		{
			name: "float rounds to 32 bits",
			expr: plan.Lit(ir.FloatValue(0.1), ir.Float),
			sql:  "?",
			args: []any{float64(float32(0.1))},
		},
		{
			name: "nan",
			expr: plan.Lit(ir.FloatValue(math.NaN()), ir.Double),
			kind: KindNumeric,
		},
		{
			name: "decimal",
			expr: plan.Lit(mustDecimal(t, "12.5"), ir.Decimal(4, 1)),
			sql:  "CAST(? AS DECIMAL(4, 1))",
			args: []any{"12.5"},
		},
		{
			name: "decimal padded to scale",
			expr: plan.Lit(mustDecimal(t, "3"), ir.Decimal(5, 2)),
			sql:  "CAST(? AS DECIMAL(5, 2))",
			args: []any{"3.00"},
		},
		{
			name: "decimal does not fit",
			expr: plan.Lit(mustDecimal(t, "123.45"), ir.Decimal(4, 1)),
			kind: KindNumeric,
		},
		{
			name: "date",
			expr: plan.Lit(ir.NewDate(2024, 2, 29), ir.Date),
			sql:  "CAST(? AS DATE)",
			args: []any{"2024-02-29"},
		},
		{name: "bytes", expr: plan.Lit(ir.BytesValue{0x01}, ir.Binary), kind: KindExpression, reason: "binary literal"},
	})
}

func TestTranslator_Columns(t *testing.T) {
	runExprCases(t, []exprCase{
		{name: "in scope", expr: col("age"), sql: "`t1`.`age`"},
		{
			name: "out of scope",
			expr: &plan.ColumnRef{Index: 12, Name: "ghost", DataType: ir.Int},
			kind: KindExpression,
		},
		{name: "nil", expr: nil, kind: KindExpression, reason: "nil expression"},
		{name: "udf", expr: testutil.UDF("score_of", ir.Double, col("id")), kind: KindExpression, reason: "user-defined function score_of"},
	})
}

func TestTranslator_Predicates(t *testing.T) {
	runExprCases(t, []exprCase{
		{
			name: "numeric comparison",
			expr: testutil.Cmp("gt", col("age"), testutil.Int(30)),
			sql:  "(`t1`.`age` > ?)",
			args: []any{int64(30)},
		},
		{
			name: "string comparison is binary",
			expr: testutil.Cmp("eq", col("name"), testutil.Str("bob")),
			sql:  "(CAST(`t1`.`name` AS BINARY) = CAST(? AS BINARY))",
			args: []any{"bob"},
		},
		{
			name: "null safe equality",
			expr: testutil.Cmp("null_safe_eq", col("flags"), col("id")),
			sql:  "(`t1`.`flags` <=> `t1`.`id`)",
		},
		{
			name: "and",
			expr: fn("and", ir.Boolean,
				testutil.Cmp("ge", col("age"), testutil.Int(18)),
				testutil.Cmp("lt", col("age"), testutil.Int(65)),
				fn("is_not_null", ir.Boolean, col("name"))),
			sql:  "((`t1`.`age` >= ?) AND (`t1`.`age` < ?) AND (`t1`.`name` IS NOT NULL))",
			args: []any{int64(18), int64(65)},
		},
		{
			name: "not or",
			expr: fn("not", ir.Boolean, fn("or", ir.Boolean,
				fn("is_null", ir.Boolean, col("age")),
				testutil.Cmp("ne", col("id"), testutil.Int(1)))),
			sql:  "(NOT ((`t1`.`age` IS NULL) OR (`t1`.`id` <> ?)))",
			args: []any{int64(1)},
		},
		{
			name: "in list",
			expr: &plan.In{Child: col("country"), List: []plan.Expr{testutil.Str("DE"), testutil.Str("FR")}},
			sql:  "(CAST(`t1`.`country` AS BINARY) IN (?, ?))",
			args: []any{"DE", "FR"},
		},
		{
			name: "not in",
			expr: &plan.In{Child: col("id"), List: []plan.Expr{testutil.Int(1), testutil.Int(2)}, Negated: true},
			sql:  "(`t1`.`id` NOT IN (?, ?))",
			args: []any{int64(1), int64(2)},
		},
		{name: "empty in", expr: &plan.In{Child: col("id")}, kind: KindExpression},
		{
			name: "like",
			expr: fn("like", ir.Boolean, col("name"), testutil.Str("a%")),
			sql:  "(CAST(`t1`.`name` AS BINARY) LIKE ?)",
			args: []any{"a%"},
		},
		{
			name: "starts with",
			expr: fn("starts_with", ir.Boolean, col("name"), testutil.Str("ab")),
			sql:  "(LEFT(CAST(`t1`.`name` AS BINARY), LENGTH(CAST(? AS BINARY))) = CAST(? AS BINARY))",
			args: []any{"ab", "ab"},
		},
		{
			name: "contains",
			expr: fn("contains", ir.Boolean, col("name"), testutil.Str("%")),
			sql:  "(INSTR(CAST(`t1`.`name` AS BINARY), CAST(? AS BINARY)) > 0)",
			args: []any{"%"},
		},
		{
			name: "case",
			expr: &plan.Case{
				Whens:    []plan.When{{Cond: testutil.Cmp("gt", col("age"), testutil.Int(30)), Then: testutil.Str("old")}},
				Else:     testutil.Str("young"),
				DataType: ir.String,
			},
			sql:  "CASE WHEN (`t1`.`age` > ?) THEN ? ELSE ? END",
			args: []any{int64(30), "old", "young"},
		},
		{name: "nondeterministic", expr: fn("rand", ir.Double), kind: KindExpression, reason: "nondeterministic function rand"},
		{name: "unknown function", expr: fn("soundex", ir.String, col("name")), kind: KindExpression, reason: "function soundex"},
	})
}

func TestTranslator_Arithmetic(t *testing.T) {
	runExprCases(t, []exprCase{
		{
			name: "long addition",
			expr: fn("add", ir.Long, col("age"), testutil.Int(1)),
			sql:  "(`t1`.`age` + ?)",
			args: []any{int64(1)},
		},
		{
			name: "narrow result wraps on the host",
			expr: fn("add", ir.Int, col("age"), col("age")),
			kind: KindNumeric,
		},
		{
			name: "narrow modulo cannot wrap",
			expr: fn("mod", ir.Int, col("age"), testutil.Int(7)),
			sql:  "(`t1`.`age` % ?)",
			args: []any{int64(7)},
		},
		{
			name: "division widens exact operands",
			expr: fn("div", ir.Double, col("flags"), testutil.Int(2)),
			sql:  "(CAST(`t1`.`flags` AS DOUBLE) / CAST(? AS DOUBLE))",
			args: []any{int64(2)},
		},
		{
			name:    "division before double casts",
			version: dialect.V(6, 5, 0),
			expr:    fn("div", ir.Double, col("flags"), testutil.Int(2)),
			kind:    KindVersion,
			reason:  "cast.double requires 7.0.0, store is 6.5.0",
		},
		{
			name: "decimal addition",
			expr: fn("add", ir.Decimal(11, 2), col("score"), col("score")),
			sql:  "(`t1`.`score` + `t1`.`score`)",
		},
		{
			name: "decimal addition overflows declared type",
			expr: fn("add", ir.Decimal(10, 2), col("score"), col("score")),
			kind: KindNumeric,
		},
		{
			name: "decimal division",
			expr: fn("div", ir.Decimal(20, 6), col("score"), col("score")),
			kind: KindNumeric,
		},
		{
			name: "integral division declared integral",
			expr: fn("div", ir.Long, col("id"), testutil.Int(2)),
			kind: KindNumeric,
		},
		{
			name: "string operand",
			expr: fn("add", ir.Long, col("name"), testutil.Int(1)),
			kind: KindExpression,
		},
		{
			name: "negation of long",
			expr: fn("neg", ir.Long, col("id")),
			sql:  "(-`t1`.`id`)",
		},
		{name: "negation of int", expr: fn("neg", ir.Int, col("age")), kind: KindNumeric},
		{
			name: "round of decimal",
			expr: fn("round", ir.Decimal(9, 1), col("score"), testutil.Int(1)),
			sql:  "ROUND(`t1`.`score`, ?)",
			args: []any{int64(1)},
		},
		{
			name: "round of double",
			expr: fn("round", ir.Double, plan.Lit(ir.FloatValue(2.5), ir.Double)),
			kind: KindNumeric,
		},
	})
}

func TestTranslator_Functions(t *testing.T) {
	runExprCases(t, []exprCase{
		{
			name: "upper",
			expr: fn("upper", ir.String, col("name")),
			sql:  "UPPER(`t1`.`name`)",
		},
		{
			name: "length counts characters",
			expr: fn("length", ir.Int, col("name")),
			sql:  "CHAR_LENGTH(`t1`.`name`)",
		},
		{
			name: "if",
			expr: fn("if", ir.Long, testutil.Cmp("gt", col("age"), testutil.Int(1)), col("id"), testutil.Int(0)),
			sql:  "IF((`t1`.`age` > ?), `t1`.`id`, ?)",
			args: []any{int64(1), int64(0)},
		},
		{name: "wrong arity", expr: fn("upper", ir.String, col("name"), col("country")), kind: KindExpression},
		{
			name: "greatest over non-null arguments",
			expr: fn("greatest", ir.Long, col("id"), testutil.Int(5)),
			sql:  "GREATEST(`t1`.`id`, ?)",
			args: []any{int64(5)},
		},
		{
			name: "greatest coalesces nullable arguments",
			expr: fn("greatest", ir.Long, col("age"), col("flags")),
			sql:  "GREATEST(COALESCE(`t1`.`age`, `t1`.`flags`), COALESCE(`t1`.`flags`, `t1`.`age`))",
		},
		{name: "least over strings", expr: fn("least", ir.String, col("name"), col("country")), kind: KindExpression},
		{
			name: "substring position zero",
			expr: fn("substring", ir.String, col("name"), testutil.Int(0), testutil.Int(3)),
			sql:  "SUBSTRING(`t1`.`name`, ?, ?)",
			args: []any{int64(1), int64(3)},
		},
		{
			name: "substring negative position",
			expr: fn("substring", ir.String, col("name"), testutil.Int(-2)),
			kind: KindExpression,
		},
		{
			name: "year",
			expr: fn("year", ir.Int, col("signup")),
			sql:  "YEAR(`t1`.`signup`)",
		},
		{name: "year of non-date", expr: fn("year", ir.Int, col("name")), kind: KindExpression},
		{
			name: "date add",
			expr: fn("date_add", ir.Date, col("signup"), testutil.Int(7)),
			sql:  "DATE_ADD(`t1`.`signup`, INTERVAL ? DAY)",
			args: []any{int64(7)},
		},
		{
			name: "date sub",
			expr: fn("date_sub", ir.Date, col("signup"), col("age")),
			sql:  "DATE_SUB(`t1`.`signup`, INTERVAL `t1`.`age` DAY)",
		},
		{
			name: "datediff",
			expr: fn("datediff", ir.Int, col("signup"), col("signup")),
			sql:  "DATEDIFF(`t1`.`signup`, `t1`.`signup`)",
		},
		{
			name: "concat ws",
			expr: fn("concat_ws", ir.String, testutil.Str("-"), col("name"), col("country")),
			sql:  "CONCAT_WS(?, `t1`.`name`, `t1`.`country`)",
			args: []any{"-"},
		},
		{
			name: "last day",
			expr: fn("last_day", ir.Date, col("signup")),
			sql:  "LAST_DAY(`t1`.`signup`)",
		},
		{
			name:    "last day before 6.0",
			version: dialect.V(5, 5, 0),
			expr:    fn("last_day", ir.Date, col("signup")),
			kind:    KindVersion,
			reason:  "func.last_day requires 6.0.0, store is 5.5.0",
		},
	})
}

func TestTranslator_Casts(t *testing.T) {
	cast := func(e plan.Expr, to ir.DataType) *plan.Cast { return &plan.Cast{Child: e, To: to} }

	runExprCases(t, []exprCase{
		{name: "identity", expr: cast(col("age"), ir.Int), sql: "`t1`.`age`"},
		{name: "widening integral", expr: cast(col("age"), ir.Long), sql: "`t1`.`age`"},
		{name: "narrowing integral", expr: cast(col("flags"), ir.Int), kind: KindNumeric},
		{name: "integral to string", expr: cast(col("age"), ir.String), sql: "CAST(`t1`.`age` AS CHAR)"},
		{name: "date to string", expr: cast(col("signup"), ir.String), sql: "CAST(`t1`.`signup` AS CHAR)"},
		{
			name: "boolean to string",
			expr: cast(testutil.Cmp("gt", col("age"), testutil.Int(1)), ir.String),
			sql:  "CASE WHEN (`t1`.`age` > ?) THEN 'true' WHEN NOT (`t1`.`age` > ?) THEN 'false' END",
			args: []any{int64(1), int64(1)},
		},
		{
			name: "boolean to integral",
			expr: cast(testutil.Cmp("gt", col("age"), testutil.Int(1)), ir.Int),
			sql:  "CASE WHEN (`t1`.`age` > ?) THEN 1 WHEN NOT (`t1`.`age` > ?) THEN 0 END",
			args: []any{int64(1), int64(1)},
		},
		{
			name: "null boolean to string",
			expr: cast(plan.Lit(ir.NullValue{}, ir.Boolean), ir.String),
			sql:  "CASE WHEN NULL THEN 'true' WHEN NOT NULL THEN 'false' END",
		},
		{name: "double to string", expr: cast(plan.Lit(ir.FloatValue(1.5), ir.Double), ir.String), kind: KindExpression},
		{name: "widening decimal", expr: cast(col("score"), ir.Decimal(12, 2)), sql: "CAST(`t1`.`score` AS DECIMAL(12, 2))"},
		{name: "narrowing decimal", expr: cast(col("score"), ir.Decimal(9, 2)), kind: KindNumeric},
		{name: "decimal to integral truncates", expr: cast(col("score"), ir.Long), kind: KindNumeric},
		{name: "integral to double", expr: cast(col("age"), ir.Double), sql: "CAST(`t1`.`age` AS DOUBLE)"},
		{name: "integral to boolean", expr: cast(col("flags"), ir.Boolean), sql: "(`t1`.`flags` <> 0)"},
		{name: "date to timestamp", expr: cast(col("signup"), ir.Timestamp), sql: "CAST(`t1`.`signup` AS DATETIME(6))"},
		{name: "string to date", expr: cast(col("name"), ir.Date), kind: KindExpression},
		{name: "beyond store decimal", expr: cast(col("score"), ir.Decimal(70, 2)), kind: KindNumeric},
	})
}

func TestTranslator_Aggregates(t *testing.T) {
	agg := func(name string, typ ir.DataType, args ...plan.Expr) *plan.AggregateCall {
		return &plan.AggregateCall{Func: name, Args: args, DataType: typ, IsNullable: true}
	}
	filtered := func(a *plan.AggregateCall, cond plan.Expr) *plan.AggregateCall {
		a.Filter = cond
		return a
	}
	distinct := func(a *plan.AggregateCall) *plan.AggregateCall {
		a.Distinct = true
		return a
	}
	adult := testutil.Cmp("ge", col("age"), testutil.Int(18))

	runExprCases(t, []exprCase{
		{name: "count star", expr: agg("count", ir.Long), sql: "COUNT(*)"},
		{
			name: "count star with filter",
			expr: filtered(agg("count", ir.Long), adult),
			sql:  "COUNT(IF((`t1`.`age` >= ?), 1, NULL))",
			args: []any{int64(18)},
		},
		{
			name: "count distinct string",
			expr: distinct(agg("count", ir.Long, col("name"))),
			sql:  "COUNT(DISTINCT CAST(`t1`.`name` AS BINARY))",
		},
		{name: "count distinct star", expr: distinct(agg("count", ir.Long)), kind: KindExpression},
		{name: "sum", expr: agg("sum", ir.Decimal(20, 2), col("score")), sql: "SUM(`t1`.`score`)"},
		{
			name: "sum with filter",
			expr: filtered(agg("sum", ir.Decimal(20, 2), col("score")), adult),
			sql:  "SUM(IF((`t1`.`age` >= ?), `t1`.`score`, NULL))",
			args: []any{int64(18)},
		},
		{
			name: "sum of wide decimal",
			expr: agg("sum", ir.Decimal(38, 2), &plan.Cast{Child: col("score"), To: ir.Decimal(30, 2)}),
			kind: KindNumeric,
		},
		{name: "avg of integral", expr: agg("avg", ir.Double, col("age")), sql: "AVG(CAST(`t1`.`age` AS DOUBLE))"},
		{name: "avg of decimal", expr: agg("avg", ir.Decimal(14, 6), col("score")), sql: "AVG(`t1`.`score`)"},
		{name: "max", expr: agg("max", ir.Date, col("signup")), sql: "MAX(`t1`.`signup`)"},
		{name: "min of string", expr: agg("min", ir.String, col("name")), kind: KindExpression},
		{name: "stddev", expr: agg("stddev", ir.Double, col("score")), sql: "STDDEV_SAMP(`t1`.`score`)"},
		{
			name:    "stddev before 6.0",
			version: dialect.V(5, 5, 0),
			expr:    agg("stddev", ir.Double, col("score")),
			kind:    KindVersion,
		},
		{name: "var pop", expr: agg("var_pop", ir.Double, col("age")), sql: "VAR_POP(`t1`.`age`)"},
		{
			name: "bit and",
			expr: agg("bit_and", ir.Long, col("flags")),
			sql:  "IF(COUNT(`t1`.`flags`) = 0, NULL, CAST(BIT_AND(`t1`.`flags`) AS SIGNED))",
		},
		{
			name:    "bit and before 7.0.1",
			version: dialect.V(7, 0, 0),
			expr:    agg("bit_and", ir.Long, col("flags")),
			kind:    KindVersion,
			reason:  "agg.bit_and requires 7.0.1, store is 7.0.0",
		},
		{name: "unknown aggregate", expr: agg("median", ir.Double, col("age")), kind: KindExpression},
	})
}

func TestTranslator_Windows(t *testing.T) {
	win := func(name string, spec plan.WindowSpec, args ...plan.Expr) *plan.WindowCall {
		return &plan.WindowCall{Func: name, Args: args, Spec: spec, DataType: ir.Long}
	}
	byID := plan.WindowSpec{OrderBy: []plan.SortKey{plan.Asc(col("id"))}}
	rows := func(start, end plan.Bound) plan.WindowSpec {
		return plan.WindowSpec{
			OrderBy: []plan.SortKey{plan.Asc(col("id"))},
			Frame:   &plan.Frame{Kind: plan.FrameRows, Start: start, End: end},
		}
	}

	runExprCases(t, []exprCase{
		{
			name: "row number",
			expr: win("row_number", plan.WindowSpec{
				PartitionBy: []plan.Expr{col("country")},
				OrderBy:     []plan.SortKey{plan.Desc(col("age"))},
			}),
			sql: "ROW_NUMBER() OVER (PARTITION BY CAST(`t1`.`country` AS BINARY) ORDER BY `t1`.`age` DESC)",
		},
		{
			name: "nulls last ascending",
			expr: win("rank", plan.WindowSpec{
				OrderBy: []plan.SortKey{{Expr: col("age"), NullsFirst: false}},
			}),
			sql: "RANK() OVER (ORDER BY (`t1`.`age` IS NULL) ASC, `t1`.`age` ASC)",
		},
		{
			name: "sum over rows frame",
			expr: &plan.WindowCall{
				Agg:      &plan.AggregateCall{Func: "sum", Args: []plan.Expr{col("score")}, DataType: ir.Decimal(20, 2)},
				Spec:     rows(plan.Bound{Kind: plan.Preceding, Offset: testutil.Int(2)}, plan.Bound{Kind: plan.CurrentRow}),
				DataType: ir.Decimal(20, 2),
			},
			sql: "SUM(`t1`.`score`) OVER (ORDER BY `t1`.`id` ASC ROWS BETWEEN 2 PRECEDING AND CURRENT ROW)",
		},
		{
			name: "unbounded frame",
			expr: &plan.WindowCall{
				Agg:      &plan.AggregateCall{Func: "count", DataType: ir.Long},
				Spec:     rows(plan.Bound{Kind: plan.UnboundedPreceding}, plan.Bound{Kind: plan.UnboundedFollowing}),
				DataType: ir.Long,
			},
			sql: "COUNT(*) OVER (ORDER BY `t1`.`id` ASC ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING)",
		},
		{
			name: "default range frame",
			expr: &plan.WindowCall{
				Agg: &plan.AggregateCall{Func: "max", Args: []plan.Expr{col("age")}, DataType: ir.Int},
				Spec: plan.WindowSpec{
					OrderBy: []plan.SortKey{plan.Asc(col("id"))},
					Frame: &plan.Frame{
						Kind:  plan.FrameRange,
						Start: plan.Bound{Kind: plan.UnboundedPreceding},
						End:   plan.Bound{Kind: plan.CurrentRow},
					},
				},
				DataType: ir.Int,
			},
			sql: "MAX(`t1`.`age`) OVER (ORDER BY `t1`.`id` ASC)",
		},
		{
			name: "offset range frame",
			expr: &plan.WindowCall{
				Agg: &plan.AggregateCall{Func: "max", Args: []plan.Expr{col("age")}, DataType: ir.Int},
				Spec: plan.WindowSpec{
					OrderBy: []plan.SortKey{plan.Asc(col("id"))},
					Frame: &plan.Frame{
						Kind:  plan.FrameRange,
						Start: plan.Bound{Kind: plan.Preceding, Offset: testutil.Int(1)},
						End:   plan.Bound{Kind: plan.CurrentRow},
					},
				},
				DataType: ir.Int,
			},
			kind: KindExpression,
		},
		{
			name: "distinct aggregate",
			expr: &plan.WindowCall{
				Agg:      &plan.AggregateCall{Func: "count", Args: []plan.Expr{col("age")}, Distinct: true, DataType: ir.Long},
				Spec:     byID,
				DataType: ir.Long,
			},
			kind: KindExpression,
		},
		{name: "ntile", expr: win("ntile", byID, testutil.Int(4)), sql: "NTILE(4) OVER (ORDER BY `t1`.`id` ASC)"},
		{name: "ntile of zero", expr: win("ntile", byID, testutil.Int(0)), kind: KindExpression},
		{
			name: "lag with default",
			expr: win("lag", byID, col("age"), testutil.Int(1), testutil.Int(0)),
			sql:  "LAG(`t1`.`age`, 1, ?) OVER (ORDER BY `t1`.`id` ASC)",
			args: []any{int64(0)},
		},
		{name: "lead", expr: win("lead", byID, col("age")), sql: "LEAD(`t1`.`age`) OVER (ORDER BY `t1`.`id` ASC)"},
		{
			name:    "lag before 6.5",
			version: dialect.V(6, 0, 0),
			expr:    win("lag", byID, col("age")),
			kind:    KindVersion,
		},
		{
			name:    "windows before 6.0",
			version: dialect.V(5, 5, 0),
			expr:    win("row_number", byID),
			kind:    KindVersion,
			reason:  "window.basic requires 6.0.0, store is 5.5.0",
		},
		{name: "unknown window function", expr: win("first_value", byID, col("age")), kind: KindExpression},
	})
}

func TestTranslator_OrderBy(t *testing.T) {
	tr := NewTranslator(dialect.For(latest))

	tests := []struct {
		name string
		keys []plan.SortKey
		sql  string
	}{
		{"default nulls", []plan.SortKey{plan.Asc(col("age")), plan.Desc(col("id"))}, "`t1`.`age` ASC, `t1`.`id` DESC"},
		{"nulls first descending", []plan.SortKey{{Expr: col("age"), Descending: true, NullsFirst: true}}, "(`t1`.`age` IS NULL) DESC, `t1`.`age` DESC"},
		{"string key", []plan.SortKey{plan.Asc(col("name"))}, "CAST(`t1`.`name` AS BINARY) ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tr.OrderBy(tt.keys, usersScope())
			require.NoError(t, err)
			assert.Equal(t, tt.sql, f.SQL)
			assert.Empty(t, f.Args)
		})
	}

	_, err := tr.OrderBy([]plan.SortKey{plan.Asc(testutil.UDF("f", ir.Long))}, usersScope())
	assert.True(t, IsUnsupported(err))
}

func TestUnsupportedError(t *testing.T) {
	err := unsupported(KindCrossSource, "join of %s and %s", "a", "b")
	assert.Equal(t, "unsupported cross_source: join of a and b", err.Error())

	wrapped := fmt.Errorf("operator 0.1: %w", err)
	ue, ok := AsUnsupported(wrapped)
	require.True(t, ok)
	assert.Same(t, err, ue)
	assert.True(t, IsUnsupported(wrapped))
	assert.False(t, IsUnsupported(errors.New("boom")))
}
