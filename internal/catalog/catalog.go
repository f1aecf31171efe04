package catalog

import (
	"strings"
	"unicode"
)

// Normalize converts an item name to its catalog id: trimmed, lower-cased,
// with internal whitespace collapsed. Lookups are exact-match on this form,
// never fuzzy.
func Normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Display returns the canonical display form of a name: the normalized form
// with its first letter capitalized.
func Display(name string) string {
	n := Normalize(name)
	if n == "" {
		return ""
	}
	r := []rune(n)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
