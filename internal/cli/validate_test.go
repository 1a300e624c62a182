package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AllValid(t *testing.T) {
	plans := []string{testPlan("filter_project"), testPlan("tier_totals"), testPlan("user_orders")}

	out, _, err := execute(t, nil, append([]string{"validate", "--catalog", testCatalog}, plans...)...)
	require.NoError(t, err)
	for _, p := range plans {
		assert.Contains(t, out, "✓ "+p)
	}
	assert.NotContains(t, out, "✗")
}

func TestValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	badCol := filepath.Join(dir, "bad_column.yaml")
	writeFile(t, badCol, "name: bad_column\nplan:\n  scan: {table: users, columns: [id, height]}\n")
	badKind := filepath.Join(dir, "two_kinds.yaml")
	writeFile(t, badKind, `name: two_kinds
plan:
  scan: {table: users}
  limit: {count: 1, input: {scan: {table: users}}}
`)

	out, _, err := execute(t, nil, "validate", "--catalog", testCatalog,
		testPlan("filter_project"), badCol, badKind)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✓ "+testPlan("filter_project"))
	assert.Contains(t, out, "✗ "+badCol)
	assert.Contains(t, out, `  - operator 0: table users has no column "height"`)
	assert.Contains(t, out, "✗ "+badKind)
	assert.Contains(t, out, "  - operator 0: want exactly one operator kind, got 2")
}

func TestValidate_JSON(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	out, _, err := execute(t, nil, "validate", "--catalog", testCatalog, "--format", "json",
		testPlan("udf_boost"), missing)
	require.Error(t, err)

	var results []ValidationResult
	resp := decodeResponse(t, out, &results)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, results, 2)
	assert.True(t, results[0].Valid)
	assert.Empty(t, results[0].Problems)
	assert.False(t, results[1].Valid)
	assert.Equal(t, []string{"plan file not found: " + missing}, results[1].Problems)
}

func TestValidate_RequiresArgs(t *testing.T) {
	_, _, err := execute(t, nil, "validate", "--catalog", testCatalog)
	require.Error(t, err)
}
