// Package strings normalizes name lists coming from identity stores.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims, lowercases, and dedupes a slice of names,
// dropping entries that are empty after trimming. First-seen order is
// preserved. Role and permission checks rely on this so a roster that says
// "Workflow:Approve " and one that says "workflow:approve" behave the same.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		name := strings.ToLower(strings.TrimSpace(v))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	return result
}
