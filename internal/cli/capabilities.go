package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/dialect"
)

// CapabilitiesOutput lists version-gated constructs for one store version.
type CapabilitiesOutput struct {
	Version    string             `json:"version"`
	Baseline   bool               `json:"baseline"`
	Constructs []ConstructSupport `json:"constructs"`
}

// ConstructSupport is one row of the capability table.
type ConstructSupport struct {
	Construct  string `json:"construct"`
	MinVersion string `json:"min_version"`
	Supported  bool   `json:"supported"`
}

// NewCapabilitiesCommand creates the capabilities command.
func NewCapabilitiesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capabilities <version>",
		Short: "List which version-gated constructs a store version supports",
		Long: `Print the capability table for a store version: every construct whose
availability depends on the version, the first version that supports it,
and whether the given version does.

Examples:
  pushdown capabilities 7.0.1
  pushdown capabilities 6.5 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapabilities(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCapabilities(opts *RootOptions, version string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	v, err := dialect.ParseVersion(version)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeVersion, err.Error(), nil)
	}
	caps := dialect.For(v)

	out := CapabilitiesOutput{Version: v.String(), Baseline: caps.Baseline()}
	for _, k := range dialect.Constructs() {
		minV, _ := dialect.MinVersion(k)
		out.Constructs = append(out.Constructs, ConstructSupport{
			Construct:  string(k),
			MinVersion: minV.String(),
			Supported:  caps.Supports(k),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	w := formatter.Writer
	if !out.Baseline {
		fmt.Fprintf(w, "✗ %s is older than %s: nothing is pushed\n\n", out.Version, dialect.MinimumVersion)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONSTRUCT\tSINCE\tSUPPORTED")
	for _, c := range out.Constructs {
		mark := "✗"
		if c.Supported {
			mark = "✓"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Construct, c.MinVersion, mark)
	}
	return tw.Flush()
}
