package utils

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"user@example.org", "first.last+tag@sub.domain.edu"}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}
	invalid := []string{"", "not-an-email", "spaces in@address.org", "user@", "@domain.org"}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := SanitizeInput("  /review/7  "); got != "/review/7" {
		t.Fatalf("expected trimmed input, got %q", got)
	}
	if got := SanitizeInput("a\x00b"); got != "ab" {
		t.Fatalf("expected null bytes removed, got %q", got)
	}
}

func TestValidateAPIKey(t *testing.T) {
	valid := []string{"abc123", "X9", "0000000000"}
	for _, key := range valid {
		if !ValidateAPIKey(key) {
			t.Errorf("expected %q to be valid", key)
		}
	}
	invalid := []string{"", "key with space", "key-with-dash", "käy", "key!"}
	for _, key := range invalid {
		if ValidateAPIKey(key) {
			t.Errorf("expected %q to be invalid", key)
		}
	}
}

func TestParseRQCJournalID(t *testing.T) {
	if id, ok := ParseRQCJournalID(" 42 "); !ok || id != 42 {
		t.Fatalf("expected 42, got %d (ok=%v)", id, ok)
	}
	for _, raw := range []string{"", "abc", "-5", "0", "1.5"} {
		if _, ok := ParseRQCJournalID(raw); ok {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}
