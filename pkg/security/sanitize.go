package security

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	unsafeFilenameRun = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	strictPolicy      = bluemonday.StrictPolicy()
)

// SanitizeString strips NUL and control characters (keeping newline, carriage
// return and tab) and trims surrounding whitespace.
func SanitizeString(s string) string {
	return strings.TrimSpace(RemoveControlCharacters(s))
}

// RemoveControlCharacters drops control runes other than \n, \r and \t.
func RemoveControlCharacters(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeHTML escapes HTML special characters.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// StripHTMLTags drops every element, and the content of script and style
// elements, leaving plain text.
func StripHTMLTags(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// SanitizeText is applied to free text such as report descriptions and case
// notes before storage.
func SanitizeText(s string) string {
	return SanitizeString(StripHTMLTags(RemoveControlCharacters(s)))
}

// SanitizeFilename reduces a client supplied name to a safe base name.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	base = unsafeFilenameRun.ReplaceAllString(base, "_")
	return strings.Trim(base, "._")
}

// TruncateString cuts s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
