package rules

import "strings"

// ContainsAny reports whether lower contains any keyword. lower must already be lowercased.
func ContainsAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// CountMatches returns how many keywords occur in lower.
func CountMatches(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return n
}
