// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	apiKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateAPIKey checks that an RQC API key contains only alphanumeric characters.
func ValidateAPIKey(key string) bool {
	return apiKeyRegex.MatchString(key)
}

// ParseRQCJournalID parses the numeric RQC journal identifier.
func ParseRQCJournalID(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}
