package utils

import (
	"strings"
	"unicode"
)

// NormalizePhrase lowercases, trims and collapses inner whitespace so that
// "  Joint   Pain " and "joint pain" share a key.
func NormalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SplitSegments splits free text on commas and semicolons, returning the
// normalized non-empty segments in input order.
func SplitSegments(s string) []string {
	raw := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		if n := NormalizePhrase(seg); n != "" {
			segments = append(segments, n)
		}
	}
	return segments
}

// Words splits a normalized phrase into whitespace separated words,
// trimming surrounding punctuation from each.
func Words(phrase string) []string {
	fields := strings.Fields(phrase)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// ContainsFold reports whether substr is within s, case-insensitively.
// An empty substr matches everything.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// AppendUnique appends values not already present (by normalized key) to dst,
// preserving first-seen order and the first spelling.
func AppendUnique(dst []string, seen map[string]struct{}, values ...string) []string {
	for _, v := range values {
		key := NormalizePhrase(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
