package plan

import (
	"strings"

	"github.com/roach88/pushdown/internal/ir"
)

// Column is one output column of an operator.
type Column struct {
	Name     string
	Type     ir.DataType
	Nullable bool
}

func (c Column) String() string {
	s := c.Name + " " + c.Type.String()
	if !c.Nullable {
		s += " not null"
	}
	return s
}

// Schema is an ordered list of columns.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Index returns the ordinal of the unique column called name, or -1 if
// there is no such column or the name is ambiguous.
func (s Schema) Index(name string) int {
	idx := -1
	for i, c := range s {
		if c.Name == name {
			if idx >= 0 {
				return -1
			}
			idx = i
		}
	}
	return idx
}

// Nullable returns a copy of s with every column nullable.
func (s Schema) Nullable() Schema {
	out := make(Schema, len(s))
	for i, c := range s {
		c.Nullable = true
		out[i] = c
	}
	return out
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
