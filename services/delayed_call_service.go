package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
)

const (
	// DelayedCallMaxTries is the retry budget for one failed submission.
	DelayedCallMaxTries = 10
	// DelayedCallMinAge is the back-off between attempts for one item.
	DelayedCallMinAge = 24 * time.Hour
)

// ResubmitFunc rebuilds the payload from current state and performs one
// delivery attempt for the article.
type ResubmitFunc func(ctx context.Context, articleID uint) (*RQCOutcome, error)

// DelayedCallSweepSummary captures the result of one sweep run.
type DelayedCallSweepSummary struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Exhausted int    `json:"exhausted"`
	Errors    int    `json:"errors"`
}

// DelayedCallService is the persistent retry ledger and its sweeper.
type DelayedCallService struct {
	db       *gorm.DB
	resubmit ResubmitFunc
}

// NewDelayedCallService constructs a DelayedCallService.
func NewDelayedCallService(db *gorm.DB, resubmit ResubmitFunc) *DelayedCallService {
	if db == nil {
		db = config.DB
	}
	return &DelayedCallService{db: db, resubmit: resubmit}
}

// Enqueue records a retryable delivery failure as a work item with the full
// retry budget.
func (s *DelayedCallService) Enqueue(ctx context.Context, articleID uint, failureReason string) error {
	item := models.DelayedCall{
		ArticleID:      articleID,
		FailureReason:  failureReason,
		RemainingTries: DelayedCallMaxTries,
		LastAttemptAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return fmt.Errorf("enqueue delayed call for article %d: %w", articleID, err)
	}
	log.Printf("RQC delivery for article %d failed (%s), enqueued for retry", articleID, failureReason)
	return nil
}

// Pending returns all ledger items in sweep order.
func (s *DelayedCallService) Pending(ctx context.Context) ([]models.DelayedCall, error) {
	var items []models.DelayedCall
	if err := s.db.WithContext(ctx).Order("delayed_call_id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load delayed calls: %w", err)
	}
	return items, nil
}

// ProcessDelayedCalls runs one sweep over the ledger. Items are handled
// independently: each one is skipped, retried, deleted or decremented on its
// own, and one item's failure never blocks the rest. Safe to re-run after an
// interruption.
func (s *DelayedCallService) ProcessDelayedCalls(ctx context.Context) (*DelayedCallSweepSummary, error) {
	summary := &DelayedCallSweepSummary{RunID: uuid.NewString()}

	items, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}

	for i := range items {
		item := &items[i]
		summary.Processed++

		if time.Since(item.LastAttemptAt) < DelayedCallMinAge {
			summary.Skipped++
			continue
		}

		if item.RemainingTries <= 0 {
			// Final exhaustion: the item is dropped without another attempt.
			// The ledger itself stays silent; the operator mail below is the
			// only escalation.
			if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
				log.Printf("sweep %s: failed to delete exhausted delayed call %d: %v", summary.RunID, item.DelayedCallID, err)
				summary.Errors++
				continue
			}
			summary.Exhausted++
			s.notifyExhausted(ctx, item)
			continue
		}

		outcome, err := s.resubmit(ctx, item.ArticleID)
		if err != nil {
			log.Printf("sweep %s: resubmission for article %d errored: %v", summary.RunID, item.ArticleID, err)
			summary.Errors++
			continue
		}

		if outcome.Success {
			if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
				log.Printf("sweep %s: failed to delete delivered delayed call %d: %v", summary.RunID, item.DelayedCallID, err)
				summary.Errors++
				continue
			}
			summary.Succeeded++
			continue
		}

		updates := map[string]interface{}{
			"remaining_tries": item.RemainingTries - 1,
			"last_attempt_at": time.Now(),
		}
		if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
			log.Printf("sweep %s: failed to update delayed call %d: %v", summary.RunID, item.DelayedCallID, err)
			summary.Errors++
			continue
		}
		summary.Failed++
	}

	log.Printf("delayed call sweep %s: processed=%d skipped=%d succeeded=%d failed=%d exhausted=%d errors=%d",
		summary.RunID, summary.Processed, summary.Skipped, summary.Succeeded, summary.Failed, summary.Exhausted, summary.Errors)
	return summary, nil
}

// notifyExhausted mails the journal contact when an item runs out of tries.
// Best effort: a mail failure is logged and absorbed.
func (s *DelayedCallService) notifyExhausted(ctx context.Context, item *models.DelayedCall) {
	var journal models.Journal
	err := s.db.WithContext(ctx).
		Joins("JOIN articles ON articles.journal_id = journals.journal_id").
		Where("articles.article_id = ?", item.ArticleID).
		First(&journal).Error
	if err != nil || journal.ContactEmail == "" {
		log.Printf("retry budget exhausted for article %d (reason %s), no contact to notify", item.ArticleID, item.FailureReason)
		return
	}

	subject := fmt.Sprintf("RQC submission for article %d gave up after %d attempts", item.ArticleID, DelayedCallMaxTries)
	body := fmt.Sprintf("<p>The review data for article %d could not be delivered to RQC.</p>"+
		"<p>Last failure reason: %s. The article can still be submitted manually from the review page.</p>",
		item.ArticleID, item.FailureReason)
	if err := config.SendMail([]string{journal.ContactEmail}, subject, body); err != nil {
		log.Printf("failed to send exhaustion notification for article %d: %v", item.ArticleID, err)
	}
}
