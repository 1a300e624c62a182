package pushdown

import (
	"errors"
	"fmt"
)

// CompileErrorCode categorizes hard compilation failures.
type CompileErrorCode string

const (
	// ErrCodeConfiguration indicates malformed or contradictory input: an
	// unknown table, a table without a usable connection, conflicting
	// versions for one connection, or a structurally invalid plan.
	ErrCodeConfiguration CompileErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeInternal indicates a compiler defect, such as an illegal state
	// transition.
	ErrCodeInternal CompileErrorCode = "INTERNAL_INCONSISTENCY"
)

// CompileError aborts a whole compilation. The caller can still run the
// original plan on the host.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the offending operator ("0", "0.1", ...), if any.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

func (e *CompileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeConfiguration
	}
	return false
}

// IsInternalInconsistency reports whether err is an internal inconsistency.
// Uses errors.As to handle wrapped errors.
func IsInternalInconsistency(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInternal
	}
	return false
}

func configError(path, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func internalError(path string, err error) *CompileError {
	return &CompileError{
		Code:    ErrCodeInternal,
		Message: err.Error(),
		Path:    path,
		Err:     err,
	}
}
