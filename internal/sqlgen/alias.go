package sqlgen

import (
	"fmt"

	"github.com/roach88/pushdown/internal/dialect"
)

// assignAliases picks one output identifier per column. Store identifiers
// are case-insensitive, so names that fold to the same string get _1, _2
// suffixes in column order. A name that is not a valid identifier, or whose
// suffixed form no longer fits, makes the whole select list unsupported.
func assignAliases(names []string) ([]string, error) {
	taken := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if !dialect.ValidIdent(name) {
			return nil, unsupported(KindAlias, "invalid column name %q", name)
		}
		alias := name
		for n := 1; taken[dialect.FoldIdent(alias)]; n++ {
			alias = fmt.Sprintf("%s_%d", name, n)
			if !dialect.ValidIdent(alias) {
				return nil, unsupported(KindAlias, "cannot disambiguate column name %q", name)
			}
		}
		taken[dialect.FoldIdent(alias)] = true
		out[i] = alias
	}
	return out, nil
}
