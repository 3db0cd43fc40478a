/**
 * @description
 * UK postcode normalization.
 * Canonical form is uppercase with exactly one space before the final three
 * characters (the inward code), e.g. "sw1a1aa" -> "SW1A 1AA". Normalization is
 * idempotent and insensitive to case and interior whitespace.
 */

package postcodes

import (
	"strings"
	"unicode"
)

// Normalize returns the canonical form of a raw postcode.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}

	s := b.String()
	if len(s) <= 3 {
		return s
	}
	return s[:len(s)-3] + " " + s[len(s)-3:]
}
