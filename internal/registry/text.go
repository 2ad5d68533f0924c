package registry

import (
	"strings"
	"unicode/utf8"
)

// maxSummaryRunes caps LastPrompt and LastResponse.
const maxSummaryRunes = 500

// NormalizeText collapses whitespace into single spaces and truncates, so
// prompts and responses fit a one-line summary.
func NormalizeText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxSummaryRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxSummaryRunes-1]) + "…"
}
