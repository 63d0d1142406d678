package utils

import (
	"strings"
	"testing"
	"time"

	"rqc-adapter-api/models"
)

func TestTruncateSingleLine(t *testing.T) {
	short := "A perfectly ordinary title"
	if got := TruncateSingleLine(short); got != short {
		t.Fatalf("short string changed: %q", got)
	}

	long := strings.Repeat("x", 2500)
	got := TruncateSingleLine(long)
	if len(got) != MaxSingleLineLength {
		t.Fatalf("expected %d characters, got %d", MaxSingleLineLength, len(got))
	}
}

func TestTruncateSingleLineCountsRunes(t *testing.T) {
	long := strings.Repeat("ü", MaxSingleLineLength+10)
	got := TruncateSingleLine(long)
	if runes := len([]rune(got)); runes != MaxSingleLineLength {
		t.Fatalf("expected %d runes, got %d", MaxSingleLineLength, runes)
	}
}

func TestTruncateMultiLine(t *testing.T) {
	long := strings.Repeat("y", 250000)
	got := TruncateMultiLine(long)
	if len(got) != MaxMultiLineLength {
		t.Fatalf("expected %d characters, got %d", MaxMultiLineLength, len(got))
	}
}

func TestConvertDateToRQCFormat(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, loc)
	if got := ConvertDateToRQCFormat(ts); got != "2024-03-15T09:30:00Z" {
		t.Fatalf("unexpected format: %q", got)
	}
}

func TestConvertOptionalDate(t *testing.T) {
	if got := ConvertOptionalDate(nil); got != nil {
		t.Fatalf("expected nil for unset date, got %q", *got)
	}
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := ConvertOptionalDate(&ts)
	if got == nil || *got != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestConvertReviewDecisionToRQCFormat(t *testing.T) {
	cases := []struct {
		name     string
		decision *string
		want     string
	}{
		{"nil", nil, DecisionUnknown},
		{"accept", strPtr("accept"), DecisionAccept},
		{"reject", strPtr("reject"), DecisionReject},
		{"decline", strPtr("decline"), DecisionReject},
		{"major", strPtr(models.RevisionMajor), DecisionMajorRevision},
		{"minor", strPtr(models.RevisionMinor), DecisionMinorRevision},
		{"conditional accept counts as minor", strPtr(models.RevisionConditionalAccept), DecisionMinorRevision},
		{"unknown value", strPtr("maybe"), DecisionUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConvertReviewDecisionToRQCFormat(tc.decision); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestGetEditorialDecision(t *testing.T) {
	now := time.Now()
	majorRevision := &models.RevisionRequest{Type: models.RevisionMajor}

	declined := &models.Article{DateDeclined: &now, DateAccepted: &now}
	if got := GetEditorialDecision(declined, majorRevision); got != DecisionReject {
		t.Fatalf("decline should win: got %q", got)
	}

	accepted := &models.Article{DateAccepted: &now}
	if got := GetEditorialDecision(accepted, majorRevision); got != DecisionAccept {
		t.Fatalf("accept should win over revisions: got %q", got)
	}

	open := &models.Article{}
	if got := GetEditorialDecision(open, majorRevision); got != DecisionMajorRevision {
		t.Fatalf("expected major revision, got %q", got)
	}
	conditional := &models.RevisionRequest{Type: models.RevisionConditionalAccept}
	if got := GetEditorialDecision(open, conditional); got != DecisionMinorRevision {
		t.Fatalf("conditional accept should report minor revisions, got %q", got)
	}
	if got := GetEditorialDecision(open, nil); got != DecisionUnknown {
		t.Fatalf("expected empty decision, got %q", got)
	}
}

func strPtr(s string) *string { return &s }
