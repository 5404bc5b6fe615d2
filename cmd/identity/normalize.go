package identity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUsernameLength bounds usernames in characters.
const MaxUsernameLength = 64

// NormalizeUsername performs case-insensitive canonicalization.
// Note: for now we only trim + lower-case.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername rejects empty, oversized, and control-character usernames.
func ValidateUsername(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(s) > MaxUsernameLength || !utf8.ValidString(s) {
		return ErrInvalidInput
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return ErrInvalidInput
		}
	}
	return nil
}
