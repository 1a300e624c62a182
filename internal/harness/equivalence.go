package harness

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/plan"
)

// Tolerance is the largest absolute difference at which two numbers in a
// result row are considered equal.
const Tolerance = 0.1

const sqliteDriver = "sqlite3_pushdown"

var registerDriver sync.Once

// OpenSQLite opens a private in-memory SQLite database that also speaks
// the store's IF(cond, then, else).
func OpenSQLite() (*sql.DB, error) {
	registerDriver.Do(func() {
		sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
			ConnectHook: func(c *sqlite3.SQLiteConn) error {
				return c.RegisterFunc("if", sqlIf, true)
			},
		})
	})
	db, err := sql.Open(sqliteDriver, ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	return db, nil
}

func sqlIf(cond, then, els any) any {
	switch c := cond.(type) {
	case int64:
		if c != 0 {
			return then
		}
	case float64:
		if c != 0 {
			return then
		}
	}
	return els
}

// Execute loads data into SQLite tables shaped like the catalog's and runs
// rel's SQL against them.
func Execute(ctx context.Context, cat *catalog.Catalog, data map[string][][]any, rel *plan.Relation) ([][]any, error) {
	db, err := OpenSQLite()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if err := load(ctx, db, cat, data); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sqliteDialect(rel.SQL), rel.Args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := [][]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// sqliteDialect rewrites the store's binary casts into SQLite's. SQLite
// reads BINARY as a numeric type name, which turns any non-numeric text
// into 0; BLOB keeps the bytes and compares them with memcmp.
func sqliteDialect(query string) string {
	return strings.ReplaceAll(query, " AS BINARY)", " AS BLOB)")
}

func load(ctx context.Context, db *sql.DB, cat *catalog.Catalog, data map[string][][]any) error {
	tables := cat.Tables()
	known := make(map[string]bool, len(tables))
	attached := make(map[string]bool)
	for _, t := range tables {
		key := t.Ref.String()
		known[key] = true
		if name := t.Ref.Database; name != "" && !attached[name] {
			attached[name] = true
			if _, err := db.ExecContext(ctx, "ATTACH DATABASE ':memory:' AS "+dialect.QuoteIdent(name)); err != nil {
				return fmt.Errorf("attach %s: %w", name, err)
			}
		}
		if _, err := db.ExecContext(ctx, createTable(t)); err != nil {
			return fmt.Errorf("create %s: %w", key, err)
		}

		rows := data[key]
		if len(rows) == 0 {
			continue
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
		insert := "INSERT INTO " + dialect.QuoteQualified(t.Ref.Database, t.Ref.Name) + " VALUES (" + marks + ")"
		for i, row := range rows {
			if len(row) != len(t.Columns) {
				return fmt.Errorf("data %s row %d: %d values, want %d", key, i, len(row), len(t.Columns))
			}
			if _, err := db.ExecContext(ctx, insert, row...); err != nil {
				return fmt.Errorf("insert %s row %d: %w", key, i, err)
			}
		}
	}
	for key := range data {
		if !known[key] {
			return fmt.Errorf("data for unknown table %s", key)
		}
	}
	return nil
}

func createTable(t catalog.Table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE " + dialect.QuoteQualified(t.Ref.Database, t.Ref.Name) + " (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(dialect.QuoteIdent(c.Name) + " " + sqliteType(c.Type))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

func sqliteType(dt ir.DataType) string {
	switch {
	case dt.Kind == ir.KindBoolean || dt.IsIntegral():
		return "INTEGER"
	case dt.Kind == ir.KindDecimal:
		return "NUMERIC"
	case dt.IsFractional():
		return "REAL"
	case dt.Kind == ir.KindBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// CompareRows diffs query results. Numbers compare as float64 within
// Tolerance, so an expected 2 matches a returned int64(2) or 2.04. Unless
// ordered is set, both sides are sorted first. The result is empty when
// the rows match.
func CompareRows(want, got [][]any, ordered bool) string {
	w, g := normalizeRows(want), normalizeRows(got)
	if !ordered {
		sortRows(w)
		sortRows(g)
	}
	return cmp.Diff(w, g, cmpopts.EquateApprox(0, Tolerance))
}

func normalizeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = normalize(v)
		}
	}
	return out
}

func normalize(v any) any {
	switch v := v.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case float32:
		return float64(v)
	case bool:
		if v {
			return float64(1)
		}
		return float64(0)
	case []byte:
		return string(v)
	}
	return v
}

func sortRows(rows [][]any) {
	slices.SortStableFunc(rows, func(a, b []any) int {
		return strings.Compare(fmt.Sprint(a...), fmt.Sprint(b...))
	})
}
