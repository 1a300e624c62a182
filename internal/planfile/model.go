// Package planfile reads logical plans from YAML.
//
// A plan file names one root operator. Every operator is a mapping with
// exactly one key naming its kind:
//
//	name: adults
//	plan:
//	  project:
//	    columns:
//	      - name: id
//	        expr: {col: id}
//	    input:
//	      filter:
//	        cond: {call: gt, args: [{col: age}, {lit: 30, type: int}]}
//	        input:
//	          scan: {table: users, columns: [id, age]}
//
// Column references are written by name ({col: age}) or by ordinal
// ({ord: 1}) and are bound to the input schema while decoding; scans take
// their column types from the catalog.
package planfile

import "gopkg.in/yaml.v3"

// File is the top-level document.
type File struct {
	// Name identifies the plan in output and golden files.
	Name string `yaml:"name"`

	// Description explains what the plan exercises.
	Description string `yaml:"description,omitempty"`

	// Plan is the root operator.
	Plan Node `yaml:"plan"`
}

// Node is one operator. Exactly one field is set.
type Node struct {
	Scan      *ScanNode      `yaml:"scan,omitempty"`
	Filter    *FilterNode    `yaml:"filter,omitempty"`
	Project   *ProjectNode   `yaml:"project,omitempty"`
	Aggregate *AggregateNode `yaml:"aggregate,omitempty"`
	Join      *JoinNode      `yaml:"join,omitempty"`
	Sort      *SortNode      `yaml:"sort,omitempty"`
	Limit     *LimitNode     `yaml:"limit,omitempty"`
	Window    *WindowNode    `yaml:"window,omitempty"`
	SetOp     *SetOpNode     `yaml:"setop,omitempty"`
	Local     *LocalNode     `yaml:"local,omitempty"`
	Opaque    *OpaqueNode    `yaml:"opaque,omitempty"`
}

type ScanNode struct {
	Table    string `yaml:"table"`
	Database string `yaml:"database,omitempty"`
	// Columns selects table columns by name; empty selects all.
	Columns []string `yaml:"columns,omitempty"`
}

type FilterNode struct {
	Cond  Expr `yaml:"cond"`
	Input Node `yaml:"input"`
}

type NamedExpr struct {
	Name string `yaml:"name"`
	Expr Expr   `yaml:"expr"`
}

type ProjectNode struct {
	Columns []NamedExpr `yaml:"columns"`
	Input   Node        `yaml:"input"`
}

type AggregateNode struct {
	GroupBy []Expr      `yaml:"group_by,omitempty"`
	Outputs []NamedExpr `yaml:"outputs"`
	Input   Node        `yaml:"input"`
}

type JoinNode struct {
	// Type is inner, left, right, full, cross, semi or anti.
	Type  string `yaml:"type"`
	Cond  *Expr  `yaml:"cond,omitempty"`
	Left  Node   `yaml:"left"`
	Right Node   `yaml:"right"`
}

type SortKey struct {
	Expr Expr `yaml:"expr"`
	Desc bool `yaml:"desc,omitempty"`
	// NullsFirst defaults to true for ascending and false for descending
	// keys.
	NullsFirst *bool `yaml:"nulls_first,omitempty"`
}

type SortNode struct {
	Keys  []SortKey `yaml:"keys"`
	Input Node      `yaml:"input"`
}

type LimitNode struct {
	Count  int64 `yaml:"count"`
	Offset int64 `yaml:"offset,omitempty"`
	Input  Node  `yaml:"input"`
}

type WindowNode struct {
	Exprs []NamedExpr `yaml:"exprs"`
	Input Node        `yaml:"input"`
}

type SetOpNode struct {
	// Kind is union_all, union, intersect or except.
	Kind   string `yaml:"kind"`
	Inputs []Node `yaml:"inputs"`
}

type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

type LocalNode struct {
	Name    string        `yaml:"name,omitempty"`
	Columns []Column      `yaml:"columns"`
	Rows    [][]yaml.Node `yaml:"rows,omitempty"`
}

type OpaqueNode struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
	Inputs  []Node   `yaml:"inputs,omitempty"`
}

// Expr is one expression. The set of fields present selects the kind:
// col/ord, lit/null, call, udf, agg, window, cast, case, in.
type Expr struct {
	Col string `yaml:"col,omitempty"`
	Ord *int   `yaml:"ord,omitempty"`

	Lit  *yaml.Node `yaml:"lit,omitempty"`
	Null bool       `yaml:"null,omitempty"`

	// Type is the result type. It may be omitted where it can be inferred:
	// literals from their YAML tag, predicates as boolean, and calls whose
	// arguments all share one type.
	Type string `yaml:"type,omitempty"`

	// Nullable overrides the inferred nullability.
	Nullable *bool `yaml:"nullable,omitempty"`

	Call string `yaml:"call,omitempty"`
	UDF  string `yaml:"udf,omitempty"`

	Agg      string `yaml:"agg,omitempty"`
	Distinct bool   `yaml:"distinct,omitempty"`
	Filter   *Expr  `yaml:"filter,omitempty"`

	Window string `yaml:"window,omitempty"`
	Over   *Over  `yaml:"over,omitempty"`

	Cast *Expr `yaml:"cast,omitempty"`

	Case []When `yaml:"case,omitempty"`
	Else *Expr  `yaml:"else,omitempty"`

	In   *Expr  `yaml:"in,omitempty"`
	List []Expr `yaml:"list,omitempty"`
	Not  bool   `yaml:"not,omitempty"`

	Args []Expr `yaml:"args,omitempty"`
}

type When struct {
	When Expr `yaml:"when"`
	Then Expr `yaml:"then"`
}

type Over struct {
	PartitionBy []Expr    `yaml:"partition_by,omitempty"`
	OrderBy     []SortKey `yaml:"order_by,omitempty"`
	Frame       *Frame    `yaml:"frame,omitempty"`
}

type Frame struct {
	// Kind is rows or range.
	Kind  string `yaml:"kind"`
	Start Bound  `yaml:"start"`
	End   Bound  `yaml:"end"`
}

type Bound struct {
	// Kind is unbounded_preceding, preceding, current_row, following or
	// unbounded_following.
	Kind   string `yaml:"kind"`
	Offset int64  `yaml:"offset,omitempty"`
}
