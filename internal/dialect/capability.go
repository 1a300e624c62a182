package dialect

import (
	"slices"
)

// Construct names a SQL construct whose availability depends on the store
// version.
type Construct string

// Gated constructs. Anything translatable that is not listed here is
// available from MinimumVersion onward.
const (
	AggBitAnd        Construct = "agg.bit_and"
	AggBitOr         Construct = "agg.bit_or"
	AggBitXor        Construct = "agg.bit_xor"
	AggStddev        Construct = "agg.stddev"
	AggVariance      Construct = "agg.variance"
	CastDouble       Construct = "cast.double"
	FuncLastDay      Construct = "func.last_day"
	FuncConcatWs     Construct = "func.concat_ws"
	JoinFullOuter    Construct = "join.full_outer"
	SetOpIntersect   Construct = "setop.intersect"
	SetOpExcept      Construct = "setop.except"
	WindowBasic      Construct = "window.basic"
	WindowRowsFrame  Construct = "window.rows_frame"
	WindowNtile      Construct = "window.ntile"
	WindowPercentile Construct = "window.percent_rank"
	WindowOffset     Construct = "window.lag_lead"
)

// MinimumVersion is the oldest store version the compiler generates SQL
// for. Against older stores nothing is pushed.
var MinimumVersion = V(5, 5, 0)

// minVersions is the capability table: construct -> first version that
// supports it.
var minVersions = map[Construct]Version{
	AggBitAnd:        V(7, 0, 1),
	AggBitOr:         V(7, 0, 1),
	AggBitXor:        V(7, 0, 1),
	AggStddev:        V(6, 0, 0),
	AggVariance:      V(6, 0, 0),
	CastDouble:       V(7, 0, 0),
	FuncLastDay:      V(6, 0, 0),
	FuncConcatWs:     V(5, 5, 0),
	JoinFullOuter:    V(6, 0, 0),
	SetOpIntersect:   V(7, 0, 0),
	SetOpExcept:      V(7, 0, 0),
	WindowBasic:      V(6, 0, 0),
	WindowRowsFrame:  V(6, 0, 0),
	WindowNtile:      V(6, 5, 0),
	WindowPercentile: V(6, 5, 0),
	WindowOffset:     V(6, 5, 0),
}

// MinVersion returns the first version supporting k. ok is false for
// constructs missing from the table.
func MinVersion(k Construct) (v Version, ok bool) {
	v, ok = minVersions[k]
	return v, ok
}

// Constructs returns every gated construct in lexical order.
func Constructs() []Construct {
	out := make([]Construct, 0, len(minVersions))
	for k := range minVersions {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Capabilities answers feature questions for one store version. It is
// immutable and safe for concurrent use.
type Capabilities struct {
	version Version
}

// For returns the capabilities of the given store version.
func For(v Version) *Capabilities {
	return &Capabilities{version: v}
}

// Version returns the store version these capabilities describe.
func (c *Capabilities) Version() Version {
	return c.version
}

// Baseline reports whether the version is new enough for any pushdown.
func (c *Capabilities) Baseline() bool {
	return c.version.AtLeast(MinimumVersion)
}

// Supports reports whether construct k is available. Unknown constructs are
// never supported.
func (c *Capabilities) Supports(k Construct) bool {
	if !c.Baseline() {
		return false
	}
	min, ok := minVersions[k]
	if !ok {
		return false
	}
	return c.version.AtLeast(min)
}
