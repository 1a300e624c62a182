package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/plan"
)

// ValidationResult holds the outcome for one plan file.
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plan.yaml>...",
		Short: "Check plan files without compiling them",
		Long: `Decode each plan file against the catalog and check that it is well
formed: every operator has its inputs, column references are in range, and
aggregate or window calls appear only where they can be evaluated.

Exit codes:
  0 - every plan is valid
  1 - at least one plan is invalid
  2 - the catalog could not be loaded`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cat, err := LoadCatalog(opts.Catalog)
	if err != nil {
		return failWith(formatter, err)
	}

	results := make([]ValidationResult, 0, len(paths))
	valid := true
	for _, path := range paths {
		r := validatePlan(path, cat)
		formatter.VerboseLog("Validated %s: %d problem(s)", path, len(r.Problems))
		valid = valid && r.Valid
		results = append(results, r)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", r.File)
				continue
			}
			fmt.Fprintf(formatter.Writer, "✗ %s\n", r.File)
			for _, p := range r.Problems {
				fmt.Fprintf(formatter.Writer, "  - %s\n", p)
			}
		}
	}

	if !valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validatePlan decodes and checks one plan file. Decoding problems are
// reported the same way as structural ones.
func validatePlan(path string, cat *catalog.Catalog) ValidationResult {
	p, err := LoadPlan(path, cat)
	if err != nil {
		msg := err.Error()
		var le *LoadError
		if errors.As(err, &le) {
			msg = le.Message
		}
		return ValidationResult{File: path, Problems: []string{msg}}
	}
	v := plan.Validate(p.Root)
	return ValidationResult{File: path, Valid: v.Valid, Problems: v.Problems}
}
