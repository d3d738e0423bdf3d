package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, collapses whitespace runs to a single space,
// drops control characters, and keeps at most maxLen runes. maxLen <= 0
// means no limit.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	runes := 0
	for _, word := range strings.Fields(input) {
		if runes > 0 {
			if maxLen > 0 && runes >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
		}
		for _, r := range word {
			if unicode.IsControl(r) {
				continue
			}
			if maxLen > 0 && runes >= maxLen {
				break
			}
			b.WriteRune(r)
			runes++
		}
	}
	return strings.TrimSpace(b.String())
}
