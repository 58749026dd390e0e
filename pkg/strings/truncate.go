package strings

import (
	"strings"
)

// MinTruncateLen is the smallest useful maxLen for Truncate: one character
// plus the "..." marker. Smaller values are clamped up to it.
const MinTruncateLen = 4

// Truncate flattens s to a single line and cuts it to at most maxLen
// characters, appending "..." when something was cut. It operates on runes,
// never splitting a multi-byte character.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	// Collapse all whitespace runs, newlines included, into single spaces.
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
