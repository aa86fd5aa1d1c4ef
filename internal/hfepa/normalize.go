package hfepa

import (
	"strings"
	"unicode"
)

// DigitPlaceholder replaces every decimal digit during normalization.
const DigitPlaceholder = '@'

// Normalize maps a raw line to its comparison key: whitespace runs
// collapse to a single space, the ends are trimmed, and each digit is
// replaced by DigitPlaceholder one-for-one, so "Page 12" becomes
// "Page @@" while "Page 1" and "Page 9" both become "Page @".
func Normalize(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for i, field := range strings.Fields(line) {
		if i > 0 {
			b.WriteByte(' ')
		}
		for _, r := range field {
			if unicode.IsDigit(r) {
				b.WriteRune(DigitPlaceholder)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isBlank reports whether a line holds nothing but whitespace.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
