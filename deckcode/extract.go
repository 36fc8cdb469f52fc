// Package deckcode extracts Hearthstone deck codes from free text and decodes
// the deckstring binary format.
package deckcode

import (
	"regexp"
	"strings"
)

// A deck code is 20+ base64 characters at a whitespace or string boundary,
// optionally preceded by a human-readable "deck code: " prefix.
var codePattern = regexp.MustCompile(`(?:^|\s)(?:deck code: )?([a-zA-Z0-9+/=]{20,})(?:\s|$)`)

// Extract returns the first deck code candidate in text, or ok=false when the
// text contains none. Absence is not an error.
func Extract(text string) (string, bool) {
	m := codePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Normalize repairs codes whose '+' characters were turned into spaces in
// transit. The result is used as the cache and lookup key.
func Normalize(code string) string {
	return strings.ReplaceAll(code, " ", "+")
}
