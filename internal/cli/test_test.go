package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_AllScenariosPass(t *testing.T) {
	out, _, err := execute(t, nil, "test", testScenarios)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ filter_project")
	assert.Contains(t, out, "✓ missing_version")
	assert.Contains(t, out, "8 passed, 0 failed, 8 total")
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(t, nil, "test", testScenarios, "--filter", "tier_*", "--format", "json")
	require.NoError(t, err)

	var result TestResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
	names := []string{result.Scenarios[0].Name, result.Scenarios[1].Name}
	assert.ElementsMatch(t, []string{"tier_totals", "tier_totals_parallel"}, names)
}

func TestTest_UpdateWritesGoldenFiles(t *testing.T) {
	goldenDir := filepath.Join(t.TempDir(), "golden")

	out, _, err := execute(t, nil, "test", testScenarios, "--golden", goldenDir, "--update")
	require.NoError(t, err, out)

	entries, err := os.ReadDir(goldenDir)
	require.NoError(t, err)
	assert.Len(t, entries, 7, "scenarios expecting an error have no golden file")

	written, err := os.ReadFile(filepath.Join(goldenDir, "filter_project.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(testScenarios, "..", "golden", "filter_project.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))
}

func TestTest_GoldenMismatch(t *testing.T) {
	goldenDir := t.TempDir()
	writeFile(t, filepath.Join(goldenDir, "filter_project.golden"), "status: not_pushed\n")

	out, _, err := execute(t, nil, "test", testScenarios, "--golden", goldenDir, "--filter", "filter_*")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ filter_project")
	assert.Contains(t, out, "does not match golden file")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTest_BrokenScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.yaml"), "name: broken\nexpect: {status: fully_pushed}\n")

	out, _, err := execute(t, nil, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "1 of 1 scenario(s) failed", resp.Error.Message)
}

func TestTest_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, _, err := execute(t, nil, "test", filepath.Join(t.TempDir(), "nowhere"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("bad filter", func(t *testing.T) {
		_, _, err := execute(t, nil, "test", testScenarios, "--filter", "[")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("empty directory", func(t *testing.T) {
		out, _, err := execute(t, nil, "test", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "No scenarios found.")
	})
}
