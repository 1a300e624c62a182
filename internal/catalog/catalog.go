// Package catalog holds the table metadata the compiler needs: which
// connection serves each table, the store version behind that connection,
// and the table's columns.
package catalog

import (
	"fmt"
	"sort"

	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/plan"
)

// Connection is a named store endpoint.
type Connection struct {
	Name     string
	Identity conn.Identity
	// Version is zero when unknown; the compiler then falls back to its
	// configured default.
	Version dialect.Version
}

// Table is a table served by a connection.
type Table struct {
	Ref        plan.TableRef
	Connection string
	Columns    plan.Schema
}

// Binding is everything the compiler needs to scan a table.
type Binding struct {
	Connection string
	Conn       conn.Identity
	Version    dialect.Version
	Columns    plan.Schema
}

// Catalog maps table references to bindings. Build it with AddConnection and
// AddTable, then treat it as read-only; lookups are safe for concurrent use
// once building is done.
type Catalog struct {
	connections map[string]Connection
	tables      map[string]Table
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		connections: make(map[string]Connection),
		tables:      make(map[string]Table),
	}
}

// AddConnection registers a connection.
func (c *Catalog) AddConnection(cn Connection) error {
	if cn.Name == "" {
		return fmt.Errorf("connection without name")
	}
	if _, dup := c.connections[cn.Name]; dup {
		return fmt.Errorf("duplicate connection %q", cn.Name)
	}
	if cn.Identity.IsZero() {
		return fmt.Errorf("connection %q has no endpoints", cn.Name)
	}
	c.connections[cn.Name] = cn
	return nil
}

// SetVersion records a detected store version for a connection.
func (c *Catalog) SetVersion(name string, v dialect.Version) error {
	cn, ok := c.connections[name]
	if !ok {
		return fmt.Errorf("unknown connection %q", name)
	}
	cn.Version = v
	c.connections[name] = cn
	return nil
}

// AddTable registers a table on an existing connection.
func (c *Catalog) AddTable(t Table) error {
	if t.Ref.Name == "" {
		return fmt.Errorf("table without name")
	}
	key := t.Ref.String()
	if _, dup := c.tables[key]; dup {
		return fmt.Errorf("duplicate table %q", key)
	}
	if _, ok := c.connections[t.Connection]; !ok {
		return fmt.Errorf("table %q: unknown connection %q", key, t.Connection)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", key)
	}
	c.tables[key] = t
	return nil
}

// Lookup resolves a table reference.
func (c *Catalog) Lookup(ref plan.TableRef) (Binding, bool) {
	t, ok := c.tables[ref.String()]
	if !ok {
		return Binding{}, false
	}
	cn := c.connections[t.Connection]
	return Binding{
		Connection: cn.Name,
		Conn:       cn.Identity,
		Version:    cn.Version,
		Columns:    t.Columns,
	}, true
}

// Connection returns a registered connection.
func (c *Catalog) Connection(name string) (Connection, bool) {
	cn, ok := c.connections[name]
	return cn, ok
}

// Connections returns every connection sorted by name.
func (c *Catalog) Connections() []Connection {
	out := make([]Connection, 0, len(c.connections))
	for _, cn := range c.connections {
		out = append(out, cn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tables returns every table sorted by reference.
func (c *Catalog) Tables() []Table {
	out := make([]Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.String() < out[j].Ref.String() })
	return out
}

// Validate checks cross-connection consistency: two connection names that
// resolve to the same identity must not claim different versions.
func (c *Catalog) Validate() error {
	conns := c.Connections()
	for i, a := range conns {
		for _, b := range conns[i+1:] {
			if !a.Identity.Equal(b.Identity) {
				continue
			}
			if a.Version.IsZero() || b.Version.IsZero() {
				continue
			}
			if a.Version.Compare(b.Version) != 0 {
				return fmt.Errorf("connections %q and %q share an identity but declare versions %s and %s",
					a.Name, b.Name, a.Version, b.Version)
			}
		}
	}
	return nil
}
