// Package testutil provides shared fixtures for compiler tests: two store
// endpoints, a small catalog over them, and helpers for building plans
// against it.
package testutil

import (
	"fmt"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// Connection names used by Catalog.
const (
	ConnA = "a"
	ConnB = "b"
)

// EndpointA is the identity of the store holding users and reviews.
func EndpointA() conn.Identity {
	return conn.NewIdentity([]string{"a1.example:3306", "a2.example:3306"}, "app", "secret-a", "shop")
}

// EndpointB is the identity of the store holding orders.
func EndpointB() conn.Identity {
	return conn.NewIdentity([]string{"b1.example:3306"}, "app", "secret-b", "billing")
}

// Users is the schema of shop.users.
var Users = plan.Schema{
	{Name: "id", Type: ir.Long},
	{Name: "name", Type: ir.String, Nullable: true},
	{Name: "age", Type: ir.Int, Nullable: true},
	{Name: "country", Type: ir.String, Nullable: true},
	{Name: "score", Type: ir.Decimal(10, 2), Nullable: true},
	{Name: "signup", Type: ir.Date, Nullable: true},
	{Name: "flags", Type: ir.Long, Nullable: true},
}

// Reviews is the schema of shop.reviews.
var Reviews = plan.Schema{
	{Name: "user_id", Type: ir.Long},
	{Name: "stars", Type: ir.Int, Nullable: true},
	{Name: "body", Type: ir.String, Nullable: true},
}

// Orders is the schema of billing.orders.
var Orders = plan.Schema{
	{Name: "id", Type: ir.Long},
	{Name: "user_id", Type: ir.Long, Nullable: true},
	{Name: "total", Type: ir.Decimal(12, 2), Nullable: true},
}

// Catalog returns a catalog with users and reviews on endpoint A at
// version va and orders on endpoint B at version vb. A zero version leaves
// the connection's version unknown.
func Catalog(va, vb dialect.Version) *catalog.Catalog {
	c := catalog.New()
	must(c.AddConnection(catalog.Connection{Name: ConnA, Identity: EndpointA(), Version: va}))
	must(c.AddConnection(catalog.Connection{Name: ConnB, Identity: EndpointB(), Version: vb}))
	must(c.AddTable(catalog.Table{Ref: plan.TableRef{Name: "users"}, Connection: ConnA, Columns: Users}))
	must(c.AddTable(catalog.Table{Ref: plan.TableRef{Name: "reviews"}, Connection: ConnA, Columns: Reviews}))
	must(c.AddTable(catalog.Table{Ref: plan.TableRef{Name: "orders"}, Connection: ConnB, Columns: Orders}))
	return c
}

// Scan builds a scan of table selecting the named columns of schema, or
// all of them when none are named.
func Scan(table string, schema plan.Schema, names ...string) *plan.Scan {
	if len(names) == 0 {
		return &plan.Scan{Table: plan.TableRef{Name: table}, Columns: schema}
	}
	cols := make(plan.Schema, len(names))
	for i, n := range names {
		j := schema.Index(n)
		if j < 0 {
			panic(fmt.Sprintf("testutil: %s has no column %q", table, n))
		}
		cols[i] = schema[j]
	}
	return &plan.Scan{Table: plan.TableRef{Name: table}, Columns: cols}
}

// Ref returns a reference to the column named name in s.
func Ref(s plan.Schema, name string) *plan.ColumnRef {
	i := s.Index(name)
	if i < 0 {
		panic(fmt.Sprintf("testutil: no column %q in %s", name, s))
	}
	return plan.Col(s, i)
}

// Int is a long literal.
func Int(v int64) *plan.Literal { return plan.Lit(ir.IntValue(v), ir.Long) }

// Str is a string literal.
func Str(v string) *plan.Literal { return plan.Lit(ir.StringValue(v), ir.String) }

// Cmp builds a boolean comparison call such as "gt" or "eq".
func Cmp(fn string, l, r plan.Expr) *plan.Call {
	return &plan.Call{Func: fn, Args: []plan.Expr{l, r}, DataType: ir.Boolean, IsNullable: l.Nullable() || r.Nullable()}
}

// UDF is a user-defined function call the store cannot evaluate.
func UDF(name string, t ir.DataType, args ...plan.Expr) *plan.UDF {
	return &plan.UDF{Name: name, Args: args, DataType: t, IsNullable: true}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
