package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pushdown/internal/pushdown"
)

// Snapshot renders what golden files pin: the root status and every
// pushed relation's read mode, SQL and arguments. Relation IDs are left
// out since they hash the SQL already shown.
//
//	status: fully_pushed
//	relation 0 mode=parallel
//	  sql:  SELECT ...
//	  args: [30]
func Snapshot(res *pushdown.Result) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "status: %s\n", res.Status)
	for i, rel := range res.Relations {
		fmt.Fprintf(&b, "relation %d mode=%s\n", i, rel.ReadMode)
		fmt.Fprintf(&b, "  sql:  %s\n", rel.SQL)
		if len(rel.Args) > 0 {
			fmt.Fprintf(&b, "  args: %v\n", rel.Args)
		}
	}
	return b.Bytes()
}

// RunWithGolden runs a scenario, fails the test on any mismatched
// expectation and compares the snapshot against
// testdata/golden/{scenario.Name}.golden. Scenarios that expect a
// compilation error have no golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}
	if result.Compile != nil {
		AssertGolden(t, scenario.Name, result.Compile)
	}
}

// AssertGolden compares a compilation result against its golden file.
func AssertGolden(t *testing.T, name string, res *pushdown.Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(res))
}
