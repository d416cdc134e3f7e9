package router

import (
	"strings"
	"unicode"
)

// IsNonsense reports whether a query carries no classifiable content:
// empty after trimming, or no letters or digits at all (e.g. "!!!???").
func IsNonsense(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return true
	}
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
