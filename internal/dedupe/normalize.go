package dedupe

import (
	"strings"
	"unicode"
)

// minContainsLen guards the containment check: very short bodies only match
// on full equality so "ok" never suppresses "okay then".
const minContainsLen = 12

// Normalize lowercases the content and collapses everything that is not a
// letter, digit or space, so punctuation and whitespace differences between
// an original message and its proxy re-post do not defeat the comparison.
func Normalize(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	lastSpace := true
	for _, r := range strings.ToLower(content) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// similar compares two normalized bodies. Proxy systems may strip a proxy
// tag prefix from the re-posted content, so besides equality one body may
// contain the other when the shorter is long enough to be distinctive.
func similar(a, b string) bool {
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(shorter) >= minContainsLen && strings.Contains(longer, shorter)
}
