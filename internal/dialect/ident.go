package dialect

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// MaxIdentifierLength is the store's identifier limit, in characters.
const MaxIdentifierLength = 64

// QuoteIdent quotes name with backticks, doubling embedded backticks.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteQualified quotes a possibly empty qualifier and a name.
func QuoteQualified(qualifier, name string) string {
	if qualifier == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(qualifier) + "." + QuoteIdent(name)
}

// ValidIdent reports whether name can be used as an identifier: non-empty,
// valid UTF-8, no NUL, no trailing space, at most MaxIdentifierLength
// characters.
func ValidIdent(name string) bool {
	if name == "" || !utf8.ValidString(name) {
		return false
	}
	if strings.ContainsRune(name, 0) || strings.HasSuffix(name, " ") {
		return false
	}
	return utf8.RuneCountInString(name) <= MaxIdentifierLength
}

// FoldIdent returns the case-folded form of name. Column names in the store
// are case-insensitive, so two names collide iff their folded forms match.
// Folding is locale-independent.
func FoldIdent(name string) string {
	// a Caser is stateful; build one per call
	return cases.Fold().String(name)
}
