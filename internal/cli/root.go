package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/config"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/probe"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Catalog is the directory of the CUE catalog package.
	Catalog string

	// ConfigFile is an optional YAML file of compiler options. Flags
	// override it.
	ConfigFile string

	// Options receives the compiler option flags.
	Options config.Options

	// Opener overrides how version probes connect (for testing).
	// If nil, defaults to probe.OpenMySQL.
	Opener probe.Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pushdown CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Options: config.Default()})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pushdown",
		Short: "Compile logical plans into store SQL",
		Long: `Rewrite logical query plans so that every subtree the store can evaluate
runs there as a single SQL statement, and the rest stays on the host.`,
		Version:       ir.CompilerVersion,
		SilenceUsage:  true,
		SilenceErrors: true, // main reports errors that commands have not
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", ".", "directory of the CUE catalog package")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "compiler options file (YAML)")
	opts.Options.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewProbeCommand(opts))
	cmd.AddCommand(NewCapabilitiesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// compilerOptions reads ConfigFile, if any, and applies the option flags
// that were set on the command line on top of it.
func (o *RootOptions) compilerOptions(cmd *cobra.Command) (config.Options, error) {
	opts := config.Default()
	if o.ConfigFile != "" {
		var err error
		if opts, err = config.Load(o.ConfigFile); err != nil {
			return config.Options{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("disable-pushdown") {
		opts.DisablePushdown = o.Options.DisablePushdown
	}
	if flags.Changed("parallel-read") {
		opts.EnableParallelRead = o.Options.EnableParallelRead
	}
	if flags.Changed("default-version") {
		opts.DefaultVersion = o.Options.DefaultVersion
	}
	if err := opts.Validate(); err != nil {
		return config.Options{}, err
	}
	return opts, nil
}

// logger writes warnings to w, or everything down to DEBUG when verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
