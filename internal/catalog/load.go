package catalog

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// schema is unified with every catalog file before decoding. Definitions
// are closed, so misspelled fields are rejected with their position.
const schema = `
#Column: {
	name:     string & !=""
	type:     string
	nullable: bool | *true
}

#Connection: {
	endpoints: [string, ...string]
	user:      string | *""
	password:  string | *""
	database:  string | *""
	version?:  string
}

#Table: {
	connection: string
	database?:  string
	name?:      string
	columns: [#Column, ...#Column]
}

#Catalog: {
	connection: [string]: #Connection
	table: [string]:      #Table
	...
}
`

// LoadError is a catalog error with the CUE position it came from.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type fileColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type fileConnection struct {
	Endpoints []string `json:"endpoints"`
	User      string   `json:"user"`
	Password  string   `json:"password"`
	Database  string   `json:"database"`
	Version   string   `json:"version,omitempty"`
}

type fileTable struct {
	Connection string       `json:"connection"`
	Database   string       `json:"database,omitempty"`
	Name       string       `json:"name,omitempty"`
	Columns    []fileColumn `json:"columns"`
}

type file struct {
	Connection map[string]fileConnection `json:"connection"`
	Table      map[string]fileTable      `json:"table"`
}

// Load reads every .cue file of the package in dir.
func Load(dir string) (*Catalog, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Field: "cue", Message: "no CUE instances loaded from " + dir}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	ctx := cuecontext.New()
	return Compile(ctx.BuildInstance(inst))
}

// ParseString compiles catalog source held in memory. filename is used in
// error positions only.
func ParseString(filename, src string) (*Catalog, error) {
	ctx := cuecontext.New()
	return Compile(ctx.CompileString(src, cue.Filename(filename)))
}

// Compile builds a catalog from a CUE value with top-level "connection" and
// "table" structs.
func Compile(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := v.Context().CompileString(schema, cue.Filename("catalog-schema.cue")).LookupPath(cue.ParsePath("#Catalog"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f file
	if err := unified.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}

	cat := New()
	for _, name := range sortedKeys(f.Connection) {
		fc := f.Connection[name]
		pos := unified.LookupPath(cue.MakePath(cue.Str("connection"), cue.Str(name))).Pos()
		cn := Connection{
			Name:     name,
			Identity: conn.NewIdentity(fc.Endpoints, fc.User, fc.Password, fc.Database),
		}
		if fc.Version != "" {
			ver, err := dialect.ParseVersion(fc.Version)
			if err != nil {
				return nil, &LoadError{Field: "connection." + name + ".version", Message: err.Error(), Pos: pos}
			}
			cn.Version = ver
		}
		if err := cat.AddConnection(cn); err != nil {
			return nil, &LoadError{Field: "connection." + name, Message: err.Error(), Pos: pos}
		}
	}

	for _, key := range sortedKeys(f.Table) {
		ft := f.Table[key]
		pos := unified.LookupPath(cue.MakePath(cue.Str("table"), cue.Str(key))).Pos()
		ref := tableRef(key, ft)
		cols := make(plan.Schema, len(ft.Columns))
		for i, c := range ft.Columns {
			dt, err := ir.ParseType(c.Type)
			if err != nil {
				return nil, &LoadError{Field: fmt.Sprintf("table.%s.columns[%d].type", key, i), Message: err.Error(), Pos: pos}
			}
			cols[i] = plan.Column{Name: c.Name, Type: dt, Nullable: c.Nullable}
		}
		if err := cat.AddTable(Table{Ref: ref, Connection: ft.Connection, Columns: cols}); err != nil {
			return nil, &LoadError{Field: "table." + key, Message: err.Error(), Pos: pos}
		}
	}

	if err := cat.Validate(); err != nil {
		return nil, &LoadError{Field: "connection", Message: err.Error()}
	}
	return cat, nil
}

// tableRef derives the reference from the struct label unless the table
// spells out name and database. A label of the form "db.table" is split.
func tableRef(label string, ft fileTable) plan.TableRef {
	ref := plan.TableRef{Database: ft.Database, Name: ft.Name}
	if ref.Name == "" {
		ref.Name = label
		if db, name, ok := strings.Cut(label, "."); ok && ref.Database == "" {
			ref.Database, ref.Name = db, name
		}
	}
	return ref
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &LoadError{Field: "cue", Message: first.Error()}
}
