package utils

import (
	"strings"
	"unicode/utf8"
)

// CanonicalHostName returns a host name in canonical form:
// - Trimmed of surrounding whitespace
// - Lowercased
// - At most one trailing dot removed ("example.com.." keeps one dot so the
//   empty label is still visible to validation)
func CanonicalHostName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, ".")
}

// SplitLabels splits a dotted name into its labels. The empty name has no labels.
func SplitLabels(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

// HasEmptyLabel reports whether any label of name is empty ("a..b", ".a", "a.").
func HasEmptyLabel(name string) bool {
	if name == "" {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..")
}

// ReverseLabels returns a copy of labels in right-to-left order.
func ReverseLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[len(labels)-1-i] = l
	}
	return out
}

// IsASCII reports whether s contains only 7-bit bytes.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
