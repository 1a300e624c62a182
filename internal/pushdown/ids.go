package pushdown

import (
	"github.com/google/uuid"
)

// IDGenerator produces compilation IDs, which tag every log line of one
// Compile call. Implemented by UUIDv7Generator (production) and
// testutil.FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 compilation IDs, so log
// lines of successive compilations sort by start time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// WithIDGenerator sets the compilation ID generator. Defaults to
// UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Compiler) {
		c.ids = g
	}
}
