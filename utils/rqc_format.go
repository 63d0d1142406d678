// utils/rqc_format.go - Conversions between platform values and the RQC schema
package utils

import (
	"time"

	"rqc-adapter-api/models"
)

// RQC schema limits. Single-line strings may not exceed 2000 characters,
// multi-line strings (review texts) 200000, and lists 20 entries. Author
// lists may hold up to 200 entries.
const (
	MaxSingleLineLength = 2000
	MaxMultiLineLength  = 200000
	MaxListLength       = 20
	MaxAuthorListLength = 200
)

// RQC decision vocabulary.
const (
	DecisionAccept        = "ACCEPT"
	DecisionReject        = "REJECT"
	DecisionMajorRevision = "MAJORREVISION"
	DecisionMinorRevision = "MINORREVISION"
	DecisionUnknown       = ""
)

// TruncateSingleLine bounds a one-line string field to the RQC limit.
// Truncation counts characters, not bytes.
func TruncateSingleLine(s string) string {
	return truncateRunes(s, MaxSingleLineLength)
}

// TruncateMultiLine bounds a review-text field to the RQC limit.
func TruncateMultiLine(s string) string {
	return truncateRunes(s, MaxMultiLineLength)
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ConvertDateToRQCFormat renders a timestamp the way RQC expects: UTC, ISO 8601.
func ConvertDateToRQCFormat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ConvertOptionalDate renders a nullable timestamp, returning nil when unset.
func ConvertOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := ConvertDateToRQCFormat(*t)
	return &formatted
}

// ConvertReviewDecisionToRQCFormat maps a reviewer's suggested decision into
// the RQC vocabulary. Unknown or missing suggestions map to the empty value.
func ConvertReviewDecisionToRQCFormat(decision *string) string {
	if decision == nil {
		return DecisionUnknown
	}
	switch *decision {
	case "accept":
		return DecisionAccept
	case "reject", "decline":
		return DecisionReject
	case models.RevisionMajor:
		return DecisionMajorRevision
	case models.RevisionMinor, models.RevisionConditionalAccept:
		return DecisionMinorRevision
	default:
		return DecisionUnknown
	}
}

// GetEditorialDecision derives the article's current editorial decision.
// A decline wins over everything, then an accept; otherwise the most recent
// revision request decides. A conditional accept counts as minor revisions.
func GetEditorialDecision(article *models.Article, latestRevision *models.RevisionRequest) string {
	if article.DateDeclined != nil {
		return DecisionReject
	}
	if article.DateAccepted != nil {
		return DecisionAccept
	}
	if latestRevision != nil {
		switch latestRevision.Type {
		case models.RevisionMajor:
			return DecisionMajorRevision
		case models.RevisionMinor, models.RevisionConditionalAccept:
			return DecisionMinorRevision
		}
	}
	return DecisionUnknown
}
