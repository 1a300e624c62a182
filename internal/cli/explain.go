package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// ExplainOutput is the JSON form of an explanation.
type ExplainOutput struct {
	Plan    string `json:"plan"`
	Status  string `json:"status"`
	Explain string `json:"explain"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "explain <plan.yaml>",
		Short: "Show the rewritten plan and every operator decision",
		Long: `Compile a plan and print the rewritten tree, each pushed relation with
its read mode, and one line per operator stating whether it was pushed and,
if not, why.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, args[0], probe, cmd)
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "detect missing store versions before compiling")

	return cmd
}

func runExplain(opts *RootOptions, planPath string, probe bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, err := compilePlan(opts, planPath, probe, cmd, formatter)
	if err != nil {
		return failWith(formatter, err)
	}

	if formatter.Format != "json" {
		return c.result.Explain(formatter.Writer, c.options.EnableParallelRead)
	}
	var b strings.Builder
	if err := c.result.Explain(&b, c.options.EnableParallelRead); err != nil {
		return err
	}
	return formatter.SuccessWithID(c.result.CompileID, ExplainOutput{
		Plan:    c.plan.Name,
		Status:  c.result.Status.String(),
		Explain: b.String(),
	})
}
