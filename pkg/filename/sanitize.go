// Package filename provides utilities for turning page titles and URLs into safe download names.
package filename

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultName is used when the caller supplies no name at all.
const DefaultName = "video"

// MaxLen is the maximum sanitized length, in characters.
const MaxLen = 120

// invalidCharsRe matches characters not safe for filenames across all major OSes.
var invalidCharsRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// whitespaceRe matches runs of ASCII and Unicode space separators, including
// no-break and em spaces, line and paragraph separators, and the BOM.
var whitespaceRe = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{feff}]+`)

// extensionRe matches a trailing 2-5 character alphanumeric extension on a URL path.
var extensionRe = regexp.MustCompile(`\.([a-zA-Z0-9]{2,5})$`)

// Sanitize converts an arbitrary title into a filename-safe base name.
// Filesystem-illegal and control characters become spaces, runs of whitespace
// collapse to one space, and the result is trimmed and capped at MaxLen
// characters. An empty input yields DefaultName.
func Sanitize(raw string) string {
	if raw == "" {
		raw = DefaultName
	}

	s := norm.NFC.String(raw)
	s = invalidCharsRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	// Truncate on rune boundaries so multi-byte titles stay valid UTF-8.
	if r := []rune(s); len(r) > MaxLen {
		s = string(r[:MaxLen])
	}
	return s
}

// ExtensionFromURL returns the lowercased extension of the URL path, or fallback
// when the path has none (or the URL cannot be parsed).
//
//	https://x/y/v.WEBM?x=1 -> webm
func ExtensionFromURL(rawURL string, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	m := extensionRe.FindStringSubmatch(u.Path)
	if m == nil {
		return strings.ToLower(fallback)
	}
	return strings.ToLower(m[1])
}
