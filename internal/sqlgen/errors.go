package sqlgen

import (
	"errors"
	"fmt"
)

// UnsupportedKind classifies why something was not translated.
type UnsupportedKind string

const (
	KindExpression  UnsupportedKind = "expression"
	KindOperator    UnsupportedKind = "operator"
	KindCrossSource UnsupportedKind = "cross_source"
	KindVersion     UnsupportedKind = "version"
	KindNumeric     UnsupportedKind = "numeric"
	KindAlias       UnsupportedKind = "alias"
)

// UnsupportedKinds lists every kind in a stable order.
var UnsupportedKinds = []UnsupportedKind{
	KindExpression, KindOperator, KindCrossSource, KindVersion, KindNumeric, KindAlias,
}

// UnsupportedError reports a construct that cannot be pushed to the store.
// It is a soft failure: the enclosing operator runs on the host instead.
type UnsupportedError struct {
	Kind   UnsupportedKind
	Reason string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Kind, e.Reason)
}

func unsupported(kind UnsupportedKind, format string, args ...any) *UnsupportedError {
	return &UnsupportedError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// AsUnsupported extracts an *UnsupportedError from err's chain.
func AsUnsupported(err error) (*UnsupportedError, bool) {
	var ue *UnsupportedError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsUnsupported reports whether err is (or wraps) an *UnsupportedError.
func IsUnsupported(err error) bool {
	_, ok := AsUnsupported(err)
	return ok
}
