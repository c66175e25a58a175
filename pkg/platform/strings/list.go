// Package strings holds small helpers for string lists taken from config and
// requests.
package strings

import "strings"

// Unique trims each value and drops empties and repeats, keeping first-seen
// order. A nil input stays nil.
func Unique(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma separated list through Unique.
// An empty or blank input yields nil.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return Unique(strings.Split(raw, ","))
}
