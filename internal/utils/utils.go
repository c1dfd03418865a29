package utils

import (
	"strings"
)

// NormalizeEmail trims and lower-cases an email address. Every lookup key in
// storage goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LooksLikeEmail reports whether s has a non-empty local part and domain and
// no whitespace. Full address validation is left to the auth provider.
func LooksLikeEmail(s string) bool {
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1
}

// MaskEmail hides most of the local part for logging, e.g. "ja***@example.com"
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "***"
	}
	local, domain := []rune(email[:at]), email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return string(local[:2]) + "***" + domain
}
