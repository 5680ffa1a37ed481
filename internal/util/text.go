package util

import "strings"

// SanitizeText drops invalid UTF-8 and NUL bytes from free text taken from
// input records and trims surrounding whitespace.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	sanitized = strings.ReplaceAll(sanitized, "\x00", "")
	return strings.TrimSpace(sanitized)
}
