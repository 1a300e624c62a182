package testutil

import "sync"

// FixedIDGenerator returns predetermined compilation IDs.
//
// This enables golden comparison of log output: the same scenario compiled
// with the same generator logs byte-identical lines.
//
// With a single ID every call returns it. With several, calls return them
// in order and then keep returning the last one.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a fixed ID generator.
//
// If no IDs are given, Generate() returns "compile-test".
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	if len(ids) == 0 {
		ids = []string{"compile-test"}
	}
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Implements pushdown.IDGenerator interface.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
