package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func UrlQuery(s string) string { return strings.ReplaceAll(s, " ", "+") }

func Str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Truncate bounds s to max bytes, appending an ellipsis when cut. The cut
// backs up to a rune boundary so a multi-byte character is never split.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
