package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/planfile"
	"github.com/roach88/pushdown/internal/pushdown"
	"github.com/roach88/pushdown/internal/testutil"
)

// Run compiles a scenario's plan and checks every expectation.
//
// Execution flow:
//  1. Load the catalog and decode the plan against it
//  2. Compile with the scenario's options and a fixed compile ID
//  3. Compare status, relations and decisions
//  4. Execute the pushed SQL on SQLite when rows are expected
//
// Problems with the scenario itself (a catalog that does not load, a plan
// that does not decode) are returned as errors. Expectation mismatches are
// reported in the result.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	cat, err := catalog.Load(s.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	p, err := planfile.Load(s.Plan, cat)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	opts, err := s.Config()
	if err != nil {
		return nil, err
	}

	compiler := pushdown.New(cat, opts,
		pushdown.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		pushdown.WithIDGenerator(testutil.NewFixedIDGenerator(s.Name)),
	)

	result := NewResult()
	res, err := compiler.Compile(ctx, p.Root)
	result.Compile, result.Err = res, err
	for _, msg := range checkCompile(&s.Expect, res, err) {
		result.AddError(msg)
	}

	if len(s.Expect.Rows) == 0 || err != nil {
		return result, nil
	}
	if res.Status != pushdown.FullyPushed || len(res.Relations) != 1 {
		result.Errorf("rows: want one fully pushed relation, got %s with %d relation(s)",
			res.Status, len(res.Relations))
		return result, nil
	}
	rel := res.Relations[0]
	rows, err := Execute(ctx, cat, s.Data, rel)
	if err != nil {
		return nil, fmt.Errorf("failed to execute pushed SQL: %w", err)
	}
	result.Rows = rows
	if diff := CompareRows(s.Expect.Rows, rows, rel.Props.Ordered); diff != "" {
		result.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	return result, nil
}
