// Package textutil holds small string helpers for log output.
package textutil

// Truncate shortens a string to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Excerpt returns the byte span [start, end) of s, clamped to valid
// offsets and truncated for log output.
func Excerpt(s string, start, end, max int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return Truncate(s[start:end], max)
}
