package auth

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// NormalizeEmail lower-cases and trims an address so lookups and admin
// patterns see one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdminEmail reports whether email matches any of the glob patterns, e.g.
// "*@admin.example.com" or "{alice,bob}@example.com". Invalid patterns never
// match.
func IsAdminEmail(patterns []string, email string) bool {
	email = NormalizeEmail(email)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(strings.ToLower(pattern), email); matched {
			return true
		}
	}
	return false
}
