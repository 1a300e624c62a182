package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/probe"
)

// ProbeOptions holds flags for the probe command.
type ProbeOptions struct {
	*RootOptions
	All     bool          // also probe connections with a declared version
	Timeout time.Duration // per-connection probe timeout
}

// ProbeResult is the outcome for one connection.
type ProbeResult struct {
	Connection string `json:"connection"`
	Target     string `json:"target"`
	Version    string `json:"version,omitempty"`
	Source     string `json:"source"` // "declared", "probed" or "failed"
	Error      string `json:"error,omitempty"`
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProbeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Detect the store version behind each catalog connection",
		Long: `Connect to every catalog connection that does not declare a version and
ask the store for it. With --all, declared versions are checked too.

Exit codes:
  0 - every connection has a version
  2 - a probe failed or the catalog could not be loaded`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "probe connections with a declared version as well")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "timeout for each probe")

	return cmd
}

func runProbe(opts *ProbeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cat, err := LoadCatalog(opts.Catalog)
	if err != nil {
		return failWith(formatter, err)
	}
	prober, err := opts.prober(formatter, probe.WithTimeout(opts.Timeout))
	if err != nil {
		return failWith(formatter, err)
	}

	var results []ProbeResult
	failed := 0
	for _, cn := range cat.Connections() {
		r := ProbeResult{Connection: cn.Name, Target: cn.Identity.String()}
		if !cn.Version.IsZero() && !opts.All {
			r.Version, r.Source = cn.Version.String(), "declared"
			results = append(results, r)
			continue
		}
		formatter.VerboseLog("Probing %s (%s)", cn.Name, r.Target)
		v, err := prober.Version(cmd.Context(), cn.Identity)
		if err != nil {
			r.Source, r.Error = "failed", err.Error()
			failed++
		} else {
			r.Version, r.Source = v.String(), "probed"
		}
		results = append(results, r)
	}

	if formatter.Format == "json" {
		if failed > 0 {
			return formatter.Fail(ExitCommandError, ErrCodeProbe,
				fmt.Sprintf("%d connection(s) could not be probed", failed), results)
		}
		return formatter.Success(results)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONNECTION\tVERSION\tSOURCE\tTARGET")
	for _, r := range results {
		version := r.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Connection, version, r.Source, r.Target)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", r.Connection, r.Error)
		}
	}

	if failed > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %d connection(s) could not be probed", ErrCodeProbe, failed))
	}
	return nil
}
