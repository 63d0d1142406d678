package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
)

// OptingValidityWindow is how long a journal-level opting decision stays
// valid. Older decisions count as absent and the reviewer is prompted again.
const OptingValidityWindow = 180 * 24 * time.Hour

// ConsentAbsent is returned when no usable opting decision exists.
const ConsentAbsent = "absent"

// OptingService resolves and records reviewer consent.
type OptingService struct {
	db *gorm.DB
}

// NewOptingService constructs an OptingService.
func NewOptingService(db *gorm.DB) *OptingService {
	if db == nil {
		db = config.DB
	}
	return &OptingService{db: db}
}

// DecisionStatus interprets a journal-level decision record at a point in
// time. Missing, undefined and out-of-window decisions all resolve to absent.
func DecisionStatus(decision *models.ReviewerOptingDecision, now time.Time) string {
	if decision == nil {
		return ConsentAbsent
	}
	if now.Sub(decision.OptingDate) > OptingValidityWindow {
		return ConsentAbsent
	}
	switch decision.OptingStatus {
	case models.OptingStatusOptIn, models.OptingStatusOptOut:
		return decision.OptingStatus
	default:
		return ConsentAbsent
	}
}

// ResolveConsent returns the reviewer's current consent state for a journal:
// opt_in, opt_out or absent. Read-only.
func (s *OptingService) ResolveConsent(ctx context.Context, reviewerID, journalID uint) (string, error) {
	var decision models.ReviewerOptingDecision
	err := s.db.WithContext(ctx).
		Where("reviewer_id = ? AND journal_id = ?", reviewerID, journalID).
		First(&decision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ConsentAbsent, nil
		}
		return "", err
	}
	return DecisionStatus(&decision, time.Now()), nil
}

// IsFrozen reports whether the assignment's consent snapshot must not be
// mutated anymore: data was already sent, or the assignment has reached a
// terminal state (complete or declined). Each condition freezes independently.
func IsFrozen(assignment *models.ReviewAssignment, snapshot *models.ReviewerOptingDecisionForAssignment) bool {
	if snapshot != nil && snapshot.SentToRQC {
		return true
	}
	if assignment == nil {
		return true
	}
	return assignment.IsComplete || assignment.DateDeclined != nil
}

// SetOptingStatus records the reviewer's journal-level choice and, when the
// assignment's snapshot is still unfrozen, mirrors the choice into it. The
// journal-level record is overwritten, not versioned.
func (s *OptingService) SetOptingStatus(ctx context.Context, assignment *models.ReviewAssignment, journalID uint, status string) (*models.ReviewerOptingDecision, error) {
	if status != models.OptingStatusOptIn && status != models.OptingStatusOptOut {
		return nil, errors.New("opting status must be opt_in or opt_out")
	}

	now := time.Now()
	decision := models.ReviewerOptingDecision{
		ReviewerID:   assignment.ReviewerID,
		JournalID:    journalID,
		OptingStatus: status,
		OptingDate:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ReviewerOptingDecision
		if err := tx.Where("reviewer_id = ? AND journal_id = ?", assignment.ReviewerID, journalID).
			First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return tx.Create(&decision).Error
		}
		decision.DecisionID = existing.DecisionID
		return tx.Save(&decision).Error
	})
	if err != nil {
		return nil, err
	}

	s.updateUnfrozenSnapshot(ctx, assignment, &decision)
	return &decision, nil
}

// updateUnfrozenSnapshot applies a new opting choice to the per-assignment
// snapshot. Frozen snapshots and assignments that are not currently active
// (accepted this year, not complete, not declined) are left untouched.
func (s *OptingService) updateUnfrozenSnapshot(ctx context.Context, assignment *models.ReviewAssignment, decision *models.ReviewerOptingDecision) {
	if assignment.DateAccepted == nil || assignment.DateAccepted.Year() != time.Now().Year() {
		return
	}
	if IsFrozen(assignment, nil) {
		return
	}

	// sent_to_rqc is re-checked in the WHERE clause so a submission racing
	// this update cannot be overwritten after the fact.
	result := s.db.WithContext(ctx).
		Model(&models.ReviewerOptingDecisionForAssignment{}).
		Where("review_assignment_id = ? AND sent_to_rqc = ?", assignment.AssignmentID, false).
		Updates(map[string]interface{}{
			"opting_status":      decision.OptingStatus,
			"decision_record_id": decision.DecisionID,
		})
	if result.Error != nil {
		log.Printf("failed to update opting snapshot for assignment %d: %v", assignment.AssignmentID, result.Error)
	}
}

// CreateAssignmentDecision snapshots the reviewer's current consent when a
// review invitation is accepted. Journals without RQC credentials are skipped
// entirely. The snapshot defaults to undefined when no valid decision exists.
func (s *OptingService) CreateAssignmentDecision(ctx context.Context, assignment *models.ReviewAssignment, journalID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.JournalAPICredentials{}).
		Where("journal_id = ?", journalID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	status := models.OptingStatusUndefined
	var decisionRecordID *uint

	var decision models.ReviewerOptingDecision
	err := s.db.WithContext(ctx).
		Where("reviewer_id = ? AND journal_id = ?", assignment.ReviewerID, journalID).
		First(&decision).Error
	if err == nil {
		if resolved := DecisionStatus(&decision, time.Now()); resolved != ConsentAbsent {
			status = resolved
			decisionRecordID = &decision.DecisionID
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	snapshot := models.ReviewerOptingDecisionForAssignment{
		ReviewAssignmentID: assignment.AssignmentID,
		OptingStatus:       status,
		DecisionRecordID:   decisionRecordID,
	}
	if createErr := s.db.WithContext(ctx).Create(&snapshot).Error; createErr != nil {
		// Unique index on review_assignment_id: snapshot already exists.
		var existing models.ReviewerOptingDecisionForAssignment
		if readErr := s.db.WithContext(ctx).
			Where("review_assignment_id = ?", assignment.AssignmentID).
			First(&existing).Error; readErr != nil {
			return createErr
		}
	}
	return nil
}

// SnapshotFor loads the consent snapshot for an assignment, if any.
func (s *OptingService) SnapshotFor(ctx context.Context, assignmentID uint) (*models.ReviewerOptingDecisionForAssignment, error) {
	var snapshot models.ReviewerOptingDecisionForAssignment
	err := s.db.WithContext(ctx).
		Where("review_assignment_id = ?", assignmentID).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}
