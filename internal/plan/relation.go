package plan

import (
	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/dialect"
)

// ReadMode says how the host fetches a relation's rows.
type ReadMode uint8

const (
	// ReadSingle issues one query. Required whenever the result's order,
	// row count or single-row shape must be preserved.
	ReadSingle ReadMode = iota
	// ReadParallel lets the host split the query across partitions.
	ReadParallel
)

func (m ReadMode) String() string {
	if m == ReadParallel {
		return "parallel"
	}
	return "single"
}

// Props are the structural facts the read-mode resolver looks at.
type Props struct {
	// Ordered is set when the outermost SELECT has ORDER BY.
	Ordered bool
	// Limited is set when LIMIT or OFFSET appears anywhere in the SQL.
	Limited bool
	// GlobalAggregate is set when an aggregate without GROUP BY appears
	// anywhere in the SQL.
	GlobalAggregate bool
}

// Relation is a compiled SQL query bound to one connection. SQL uses '?'
// placeholders; Args holds their values in textual order.
type Relation struct {
	ID       string
	SQL      string
	Args     []any
	Columns  Schema
	Conn     conn.Identity
	Version  dialect.Version
	ReadMode ReadMode
	Props    Props

	// Ordering is the ORDER BY of the outermost SELECT, bound to Columns.
	// It is nil when the relation is unordered, and also when the order is
	// on columns the relation does not expose.
	Ordering []SortKey
}

// Identity returns the connection the relation must run on.
func (r *Relation) Identity() conn.Identity { return r.Conn }
