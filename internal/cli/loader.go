package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/planfile"
	"github.com/roach88/pushdown/internal/probe"
	"github.com/roach88/pushdown/internal/pushdown"
)

// Error codes
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeCatalog     = "E002" // Catalog failed to load
	ErrCodePlan        = "E003" // Plan file failed to decode
	ErrCodeOptions     = "E004" // Invalid compiler options
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeProbe       = "E006" // Version probe failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeConfiguration = "E010" // Compiler configuration error
	ErrCodeInternal      = "E011" // Compiler internal inconsistency
	ErrCodeVersion       = "E012" // Malformed version argument
)

// LoadError is a problem with a command's inputs.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCatalog loads the catalog package in dir.
func LoadCatalog(dir string) (*catalog.Catalog, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cat, err := catalog.Load(dir)
	if err != nil {
		var le *catalog.LoadError
		if errors.As(err, &le) {
			return nil, &LoadError{Code: ErrCodeCatalog, Message: le.Field + ": " + le.Message, Pos: le.Pos}
		}
		return nil, &LoadError{Code: ErrCodeCatalog, Message: err.Error()}
	}
	return cat, nil
}

// LoadPlan decodes a plan file against cat.
func LoadPlan(path string, cat *catalog.Catalog) (*planfile.Plan, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("plan file not found: %s", path)}
	}
	p, err := planfile.Load(path, cat)
	if err != nil {
		return nil, &LoadError{Code: ErrCodePlan, Message: err.Error()}
	}
	return p, nil
}

// fillVersions probes the connections whose version the catalog leaves
// open.
func (o *RootOptions) fillVersions(ctx context.Context, cat *catalog.Catalog, f *OutputFormatter) error {
	prober, err := o.prober(f)
	if err != nil {
		return err
	}
	if err := prober.Fill(ctx, cat); err != nil {
		return &LoadError{Code: ErrCodeProbe, Message: err.Error()}
	}
	return nil
}

func (o *RootOptions) prober(f *OutputFormatter, extra ...probe.Option) (*probe.Prober, error) {
	popts := append([]probe.Option{probe.WithLogger(o.logger(f.GetErrWriter()))}, extra...)
	if o.Opener != nil {
		popts = append(popts, probe.WithOpener(o.Opener))
	}
	return probe.New(probe.DefaultCacheSize, popts...)
}

// errorCode maps an error to its CLI error code.
func errorCode(err error) string {
	var le *LoadError
	switch {
	case errors.As(err, &le):
		return le.Code
	case pushdown.IsConfigurationError(err):
		return ErrCodeConfiguration
	case pushdown.IsInternalInconsistency(err):
		return ErrCodeInternal
	}
	return ErrCodeGeneric
}

// errorMessage is err's text without the LoadError code prefix, keeping
// the CUE position when there is one.
func errorMessage(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Pos.IsValid() {
			return fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
		}
		return le.Message
	}
	return err.Error()
}

// failWith reports err through f and returns the ExitError for it.
func failWith(f *OutputFormatter, err error) error {
	return f.Fail(exitCodeFor(err), errorCode(err), errorMessage(err), nil)
}

func exitCodeFor(err error) int {
	var le *LoadError
	if errors.As(err, &le) && le.Code == ErrCodePlan {
		return ExitFailure
	}
	return ExitCommandError
}
