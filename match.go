package mascotlayer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize folds s for fuzzy comparison: NFKC, case folded, with every
// space, punctuation and symbol rune removed. Full-width and half-width
// spellings normalise to the same string.
func Normalize(s string) string {
	s = folder.String(norm.NFKC.String(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}

// Match reports whether a parameter value names a layer. The value matches
// when either the layer's original name or its identifier contains it or
// ends with it after normalisation. An empty value matches nothing.
func Match(value, originalName, id string) bool {
	v := Normalize(value)
	if v == "" {
		return false
	}
	for _, candidate := range []string{Normalize(originalName), Normalize(id)} {
		if strings.Contains(candidate, v) || strings.HasSuffix(candidate, v) {
			return true
		}
	}
	return false
}
