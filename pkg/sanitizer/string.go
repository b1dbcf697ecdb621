package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims s and collapses every run of whitespace to a single
// space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}
	return result.String()
}

// NormalizeName is applied to venue and room names.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizePerson trims identifiers and display names of people. Inner
// whitespace is kept, so "JANE  DOE" and "JANE DOE" stay different people.
func NormalizePerson(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeUpper is NormalizePerson followed by upper-casing, the form
// display names are stored in.
func NormalizeUpper(name string) string {
	return strings.ToUpper(NormalizePerson(name))
}
