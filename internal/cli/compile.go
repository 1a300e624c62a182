package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/config"
	"github.com/roach88/pushdown/internal/planfile"
	"github.com/roach88/pushdown/internal/pushdown"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Probe  bool   // probe connections without a version first
}

// CompilationResult is the JSON form of a compilation.
type CompilationResult struct {
	CompileID string              `json:"compile_id"`
	Plan      string              `json:"plan"`
	Status    string              `json:"status"`
	Relations []RelationOutput    `json:"relations"`
	Decisions []pushdown.Decision `json:"decisions"`
}

// RelationOutput is one pushed statement.
type RelationOutput struct {
	ID       string `json:"id"`
	SQL      string `json:"sql"`
	Args     []any  `json:"args"`
	ReadMode string `json:"read_mode"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <plan.yaml>",
		Short: "Compile a plan and print the pushed SQL",
		Long: `Compile a YAML logical plan against the catalog.

Prints the final status, every pushed SQL statement with its arguments
and read mode, and the operators left on the host with the reason.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON result to this file")
	cmd.Flags().BoolVar(&opts.Probe, "probe", false, "detect missing store versions before compiling")

	return cmd
}

// compiled is what compile and explain share.
type compiled struct {
	plan    *planfile.Plan
	options config.Options
	result  *pushdown.Result
}

// compilePlan loads the catalog and plan, then compiles.
func compilePlan(opts *RootOptions, planPath string, probe bool, cmd *cobra.Command, f *OutputFormatter) (*compiled, error) {
	cat, err := LoadCatalog(opts.Catalog)
	if err != nil {
		return nil, err
	}
	f.VerboseLog("Loaded catalog %s: %d connection(s), %d table(s)",
		opts.Catalog, len(cat.Connections()), len(cat.Tables()))

	if probe {
		if err := opts.fillVersions(cmd.Context(), cat, f); err != nil {
			return nil, err
		}
	}

	p, err := LoadPlan(planPath, cat)
	if err != nil {
		return nil, err
	}
	copts, err := opts.compilerOptions(cmd)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeOptions, Message: err.Error()}
	}

	compiler := pushdown.New(cat, copts, pushdown.WithLogger(opts.logger(f.GetErrWriter())))
	res, err := compiler.Compile(cmd.Context(), p.Root)
	if err != nil {
		return nil, err
	}
	return &compiled{plan: p, options: copts, result: res}, nil
}

func runCompile(opts *CompileOptions, planPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	c, err := compilePlan(opts.RootOptions, planPath, opts.Probe, cmd, formatter)
	if err != nil {
		return failWith(formatter, err)
	}
	out := newCompilationResult(c)

	if opts.Output != "" {
		if err := writeResultToFile(out, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if formatter.Format == "json" {
		return formatter.SuccessWithID(out.CompileID, out)
	}
	return outputCompileText(formatter, out, opts.Output)
}

func newCompilationResult(c *compiled) *CompilationResult {
	out := &CompilationResult{
		CompileID: c.result.CompileID,
		Plan:      c.plan.Name,
		Status:    c.result.Status.String(),
		Relations: make([]RelationOutput, len(c.result.Relations)),
		Decisions: c.result.Decisions,
	}
	for i, rel := range c.result.Relations {
		args := rel.Args
		if args == nil {
			args = []any{}
		}
		out.Relations[i] = RelationOutput{
			ID:       rel.ID,
			SQL:      rel.SQL,
			Args:     args,
			ReadMode: rel.ReadMode.String(),
		}
	}
	return out
}

func outputCompileText(formatter *OutputFormatter, out *CompilationResult, outputFile string) error {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s: %s, %d relation(s)\n", out.Plan, out.Status, len(out.Relations))

	for i, rel := range out.Relations {
		fmt.Fprintf(w, "\n-- relation %d (%s)\n%s;\n", i, rel.ReadMode, rel.SQL)
		if len(rel.Args) > 0 {
			fmt.Fprintf(w, "-- args: %v\n", rel.Args)
		}
	}

	var host []string
	for _, d := range out.Decisions {
		if d.State != pushdown.FullyPushed {
			host = append(host, fmt.Sprintf("  %s %s: %s", d.Path, d.State, d.Reason))
		}
	}
	if len(host) > 0 {
		fmt.Fprintf(w, "\nOn the host:\n%s\n", strings.Join(host, "\n"))
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote result to %s\n", outputFile)
	}
	return nil
}

// writeResultToFile writes the result as indented JSON.
func writeResultToFile(out *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
