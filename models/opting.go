package models

import "time"

// Reviewer opting statuses.
const (
	OptingStatusOptIn     = "opt_in"
	OptingStatusOptOut    = "opt_out"
	OptingStatusUndefined = "undefined"
)

// ReviewerOptingDecision is the reviewer's journal-scoped consent state. One
// current record per (reviewer, journal) pair, overwritten on resubmission.
// A decision older than the validity window counts as absent.
type ReviewerOptingDecision struct {
	DecisionID   uint      `gorm:"primaryKey;column:decision_id" json:"decision_id"`
	ReviewerID   uint      `gorm:"column:reviewer_id;uniqueIndex:idx_reviewer_journal" json:"reviewer_id"`
	JournalID    uint      `gorm:"column:journal_id;uniqueIndex:idx_reviewer_journal" json:"journal_id"`
	OptingStatus string    `gorm:"column:opting_status" json:"opting_status"`
	OptingDate   time.Time `gorm:"column:opting_date" json:"opting_date"`
}

func (ReviewerOptingDecision) TableName() string { return "reviewer_opting_decisions" }

// ReviewerOptingDecisionForAssignment freezes the consent state for one review
// assignment. Once the assignment's data has been sent, or the assignment is
// complete or declined, the record must not change again.
type ReviewerOptingDecisionForAssignment struct {
	SnapshotID         uint   `gorm:"primaryKey;column:snapshot_id" json:"snapshot_id"`
	ReviewAssignmentID uint   `gorm:"column:review_assignment_id;uniqueIndex" json:"review_assignment_id"`
	OptingStatus       string `gorm:"column:opting_status" json:"opting_status"`
	SentToRQC          bool   `gorm:"column:sent_to_rqc" json:"sent_to_rqc"`
	DecisionRecordID   *uint  `gorm:"column:decision_record_id" json:"decision_record_id,omitempty"`

	ReviewAssignment ReviewAssignment        `gorm:"foreignKey:ReviewAssignmentID" json:"review_assignment,omitempty"`
	DecisionRecord   *ReviewerOptingDecision `gorm:"foreignKey:DecisionRecordID" json:"decision_record,omitempty"`
}

func (ReviewerOptingDecisionForAssignment) TableName() string {
	return "reviewer_opting_decisions_for_assignments"
}
