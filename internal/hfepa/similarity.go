package hfepa

import (
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// Similarity returns 1 - distance/max(len(a), len(b)) using unit-cost
// Levenshtein distance over runes. Two empty strings are identical (1);
// an empty string against a non-empty one scores 0. Callers pass
// normalized keys.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	switch {
	case la == 0 && lb == 0:
		return 1
	case la == 0 || lb == 0:
		return 0
	case a == b:
		return 1
	}

	longest := max(la, lb)
	dist := levenshtein.Distance(a, b, nil)
	sim := 1 - float64(dist)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}
