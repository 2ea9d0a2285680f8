package utils

import (
	"strings"
)

// NormalizeSpace trims s and collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanList trims every entry and drops the blank ones. The result is never
// nil.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitLines splits a textarea value into cleaned, non-blank lines.
func SplitLines(raw string) []string {
	return CleanList(strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r'
	}))
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
