// Package query normalizes user-supplied instrument queries before they are
// submitted to the source's search page.
package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the fixed-point loop; removing a rune can expose one new
// composition, so two passes settle every realistic input.
const maxPasses = 4

// Normalize folds full-width forms (NFKC) and removes whitespace, control and
// format runes and markup characters. The source's search index does not
// tokenize across spaces, so "贵州 茅台" and "贵州茅台" must submit the same
// keyword. It is idempotent.
func Normalize(raw string) string {
	s := raw
	for i := 0; i < maxPasses; i++ {
		next := strings.Map(keep, norm.NFKC.String(s))
		if next == s {
			break
		}
		s = next
	}
	return s
}

func keep(r rune) rune {
	switch {
	case unicode.IsSpace(r), unicode.IsControl(r), unicode.Is(unicode.Cf, r):
		return -1
	case r == unicode.ReplacementChar:
		return -1
	}
	switch r {
	case '<', '>', '"', '\'', '\\', '`':
		return -1
	}
	return r
}
