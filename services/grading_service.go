package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
)

// ErrCredentialsNotFound is returned when a journal has no stored RQC
// credentials; submission is impossible without them.
var ErrCredentialsNotFound = errors.New("RQC API credentials not found for journal")

// GradingService ties assembly, delivery and the retry ledger together. It is
// the single entry point for explicit calls, implicit workflow calls and the
// sweeper's re-deliveries.
type GradingService struct {
	db      *gorm.DB
	payload *PayloadService
	client  *RQCClient
	delayed *DelayedCallService
}

// NewGradingService constructs a GradingService and wires the sweeper's
// resubmission path back into it.
func NewGradingService(db *gorm.DB, client *http.Client) *GradingService {
	if db == nil {
		db = config.DB
	}
	service := &GradingService{
		db:      db,
		payload: NewPayloadService(db),
		client:  NewRQCClient(db, client),
	}
	service.delayed = NewDelayedCallService(db, service.resubmitDelayed)
	return service
}

// DelayedCalls exposes the retry ledger, for the sweep binary.
func (g *GradingService) DelayedCalls() *DelayedCallService { return g.delayed }

// SubmitForGrading assembles the document for an article and performs one
// delivery attempt. Retryable failures are enqueued in the ledger; a
// forbidden response additionally alerts the journal contact because it
// means the stored credentials have gone bad.
func (g *GradingService) SubmitForGrading(ctx context.Context, article *models.Article, journal *models.Journal, submissionPage string, interactive bool, user *models.User) (*RQCOutcome, error) {
	return g.submit(ctx, article, journal, submissionPage, interactive, user, true)
}

// submit performs one assembly + delivery attempt. enqueueRetry controls
// whether a retryable failure creates a ledger item; the sweeper's own
// attempts must not, or every failed sweep would spawn a fresh item with a
// full retry budget next to the one it just decremented.
func (g *GradingService) submit(ctx context.Context, article *models.Article, journal *models.Journal, submissionPage string, interactive bool, user *models.User, enqueueRetry bool) (*RQCOutcome, error) {
	var credentials models.JournalAPICredentials
	if err := g.db.WithContext(ctx).Where("journal_id = ?", journal.JournalID).
		First(&credentials).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, err
	}

	data, err := g.payload.FetchPostData(ctx, article, journal, submissionPage, interactive, user)
	if err != nil {
		return nil, fmt.Errorf("assemble submission for article %d: %w", article.ArticleID, err)
	}

	outcome := g.client.SubmitArticle(ctx, &credentials, article.ArticleID, data)

	if !outcome.Success {
		if enqueueRetry && outcome.Retryable() {
			if enqueueErr := g.delayed.Enqueue(ctx, article.ArticleID, strconv.Itoa(outcome.StatusCode)); enqueueErr != nil {
				log.Printf("failed to enqueue retry for article %d: %v", article.ArticleID, enqueueErr)
			}
		}
		if outcome.StatusCode == http.StatusForbidden {
			g.alertBadCredentials(journal, outcome)
		}
	}

	return outcome, nil
}

// ImplicitSubmission performs a non-interactive call for workflow events
// (article accepted, declined, undeclined, revisions requested).
func (g *GradingService) ImplicitSubmission(ctx context.Context, articleID uint) (*RQCOutcome, error) {
	article, journal, err := g.loadArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return g.SubmitForGrading(ctx, article, journal, "", false, nil)
}

// resubmitDelayed is the sweeper's delivery path. The payload is rebuilt from
// current state so newer consent and editor data is picked up, still subject
// to the stored editor list's immutability. The existing ledger item already
// tracks this article, so a failed re-attempt decrements it instead of
// enqueueing a new one.
func (g *GradingService) resubmitDelayed(ctx context.Context, articleID uint) (*RQCOutcome, error) {
	article, journal, err := g.loadArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return g.submit(ctx, article, journal, "", false, nil, false)
}

func (g *GradingService) loadArticle(ctx context.Context, articleID uint) (*models.Article, *models.Journal, error) {
	var article models.Article
	if err := g.db.WithContext(ctx).Where("article_id = ?", articleID).First(&article).Error; err != nil {
		return nil, nil, fmt.Errorf("load article %d: %w", articleID, err)
	}
	var journal models.Journal
	if err := g.db.WithContext(ctx).Where("journal_id = ?", article.JournalID).First(&journal).Error; err != nil {
		return nil, nil, fmt.Errorf("load journal %d: %w", article.JournalID, err)
	}
	return &article, &journal, nil
}

func (g *GradingService) alertBadCredentials(journal *models.Journal, outcome *RQCOutcome) {
	if journal.ContactEmail == "" {
		return
	}
	subject := fmt.Sprintf("RQC rejected the API credentials for %s", journal.Name)
	body := fmt.Sprintf("<p>RQC answered 403 Forbidden for journal %s. Please re-check the journal ID and API key in the RQC settings.</p><p>Details: %s</p>",
		journal.Name, outcome.Message)
	if err := config.SendMail([]string{journal.ContactEmail}, subject, body); err != nil {
		log.Printf("failed to send credential alert for journal %d: %v", journal.JournalID, err)
	}
}
