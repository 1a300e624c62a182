package harness

import (
	"fmt"

	"github.com/roach88/pushdown/internal/pushdown"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Compile is the compiler's result. Nil when compilation failed.
	Compile *pushdown.Result `json:"compile,omitempty"`

	// Err is the compilation error, if any.
	Err error `json:"-"`

	// Rows holds what the pushed SQL returned, for scenarios that check
	// equivalence.
	Rows [][]any `json:"rows,omitempty"`

	// Errors contains one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Errorf is AddError with formatting.
func (r *Result) Errorf(format string, args ...any) {
	r.AddError(fmt.Sprintf(format, args...))
}
