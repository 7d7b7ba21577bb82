package textmatch

import (
	"math"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IsMatch reports whether s1 and s2 are fuzzy-equal.
//
// Unless caseSensitive, both strings are lowercased first. Identical strings
// match. Otherwise, with d the edit distance and m the shorter rune length,
// they match iff d < floor(m / 2).
func IsMatch(s1, s2 string, caseSensitive bool) bool {
	n1, n2 := normalize(s1, caseSensitive), normalize(s2, caseSensitive)
	return matchNormalized(n1, n2)
}

func matchNormalized(n1, n2 string) bool {
	if n1 == n2 {
		return true
	}
	m := min(utf8.RuneCountInString(n1), utf8.RuneCountInString(n2))
	threshold := math.Floor(float64(m) / 2.0)
	return float64(Distance(n1, n2)) < threshold
}

// normalize lowercases s unless caseSensitive. A Caser keeps state, so each
// call gets its own.
func normalize(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return cases.Lower(language.Und).String(s)
}
