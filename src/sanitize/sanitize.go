// Package sanitize makes untrusted message bodies safe to put in a log record.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultLimit is the number of bytes of a body kept by RawBody.
const DefaultLimit = 4096

// ANSI escape codes: \x1b[...m (SGR sequences)
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes ANSI escape codes.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// RawBody renders a body that failed to decode. Invalid UTF-8 is replaced,
// terminal escapes are removed and the result is cut at limit bytes on a rune
// boundary. limit <= 0 uses DefaultLimit.
func RawBody(b []byte, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s := StripANSI(strings.ToValidUTF8(string(b), "�"))
	if len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...(%d more bytes)", s[:cut], len(s)-cut)
}
