// Package config holds the switches the compiler consumes.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pushdown/internal/dialect"
)

// Options configures a compilation.
type Options struct {
	// DisablePushdown leaves every plan untouched.
	DisablePushdown bool `yaml:"disable_pushdown"`

	// EnableParallelRead allows relations to be read as parallel partition
	// streams when their SQL permits it.
	EnableParallelRead bool `yaml:"enable_parallel_read"`

	// DefaultVersion is used for connections whose version was neither
	// declared nor detected. Zero means such connections are an error.
	DefaultVersion dialect.Version `yaml:"default_version"`
}

// Default returns the default options: pushdown and parallel reads on, no
// default version.
func Default() Options {
	return Options{EnableParallelRead: true}
}

// Load reads options from a YAML file, starting from Default. Unknown
// fields are rejected.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML options, starting from Default.
func Parse(data []byte) (Options, error) {
	opts := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid config: %w", err)
	}
	return opts, nil
}

// Validate checks the options for contradictions.
func (o Options) Validate() error {
	if !o.DefaultVersion.IsZero() && !o.DefaultVersion.AtLeast(dialect.MinimumVersion) {
		return fmt.Errorf("default_version %s is older than the minimum supported %s",
			o.DefaultVersion, dialect.MinimumVersion)
	}
	return nil
}

// RegisterFlags binds the options to command line flags. Flag defaults are
// the current field values, so call it after loading a file to let flags
// override the file.
func (o *Options) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.DisablePushdown, "disable-pushdown", o.DisablePushdown, "leave the plan entirely to the host")
	fs.BoolVar(&o.EnableParallelRead, "parallel-read", o.EnableParallelRead, "allow parallel partition reads")
	fs.Var((*versionValue)(&o.DefaultVersion), "default-version", "store version for connections without one (e.g. 7.0.1)")
}

// versionValue adapts dialect.Version to pflag.Value.
type versionValue dialect.Version

func (v *versionValue) String() string {
	ver := dialect.Version(*v)
	if ver.IsZero() {
		return ""
	}
	return ver.String()
}

func (v *versionValue) Set(s string) error {
	ver, err := dialect.ParseVersion(s)
	if err != nil {
		return err
	}
	*v = versionValue(ver)
	return nil
}

func (*versionValue) Type() string { return "version" }
