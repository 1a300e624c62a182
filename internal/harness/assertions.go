package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/pushdown/internal/pushdown"
)

// checkCompile compares a compilation outcome with the scenario's
// expectations and returns one message per mismatch.
func checkCompile(e *Expect, res *pushdown.Result, err error) []string {
	var errs []string
	if e.Error != "" {
		switch {
		case err == nil:
			errs = append(errs, fmt.Sprintf("expected error containing %q, compilation succeeded", e.Error))
		case !strings.Contains(err.Error(), e.Error):
			errs = append(errs, fmt.Sprintf("expected error containing %q, got %q", e.Error, err.Error()))
		}
		return errs
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	if got := res.Status.String(); got != e.Status {
		errs = append(errs, fmt.Sprintf("status: want %s, got %s", e.Status, got))
	}
	if e.Relations != nil && *e.Relations != len(res.Relations) {
		errs = append(errs, fmt.Sprintf("relations: want %d, got %d", *e.Relations, len(res.Relations)))
	}
	if len(e.ReadModes) > 0 {
		if len(e.ReadModes) != len(res.Relations) {
			errs = append(errs, fmt.Sprintf("read_modes: want %d, got %d relation(s)", len(e.ReadModes), len(res.Relations)))
		} else {
			for i, want := range e.ReadModes {
				if got := res.Relations[i].ReadMode.String(); got != want {
					errs = append(errs, fmt.Sprintf("read_modes[%d]: want %s, got %s", i, want, got))
				}
			}
		}
	}
	for _, want := range e.Decisions {
		errs = append(errs, checkDecision(want, res)...)
	}
	return errs
}

func checkDecision(want DecisionExpect, res *pushdown.Result) []string {
	got, ok := res.Decision(want.Path)
	if !ok {
		return []string{fmt.Sprintf("decision %s: no such operator", want.Path)}
	}
	var errs []string
	if got.State.String() != want.State {
		errs = append(errs, fmt.Sprintf("decision %s: want state %s, got %s (%s)", want.Path, want.State, got.State, got.Reason))
	}
	if string(got.Kind) != want.Kind {
		errs = append(errs, fmt.Sprintf("decision %s: want kind %q, got %q", want.Path, want.Kind, got.Kind))
	}
	if want.Reason != "" && !strings.Contains(got.Reason, want.Reason) {
		errs = append(errs, fmt.Sprintf("decision %s: reason %q does not contain %q", want.Path, got.Reason, want.Reason))
	}
	return errs
}
