// Package textutil provides text normalization helpers for field extraction.
package textutil

import "strings"

// Normalize lowercases text and collapses its whitespace, the form keyword
// matching works on.
func Normalize(text string) string {
	return strings.ToLower(Clean(text))
}

// Clean collapses every whitespace run to a single space and trims the ends.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ContainsAny reports whether text contains any of the keywords as a substring.
// Empty keywords never match.
func ContainsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// DatasetKey converts a data-* attribute name to its DOM dataset key
// ("data-field-id" becomes "fieldId"). It reports false for other attributes.
func DatasetKey(attr string) (string, bool) {
	rest, ok := strings.CutPrefix(attr, "data-")
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.Grow(len(rest))
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == '-' && i+1 < len(rest) && rest[i+1] >= 'a' && rest[i+1] <= 'z' {
			b.WriteByte(rest[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), true
}
