package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
)

const defaultRQCBaseURL = "https://reviewqualitycollector.org/api"

// Transport-level outcome codes. Kept negative so they can never collide with
// HTTP status codes in the failure_reason column.
const (
	RQCErrConnection = -1
	RQCErrTimeout    = -2
	RQCErrRequest    = -3
	RQCErrUnknown    = -4
)

// RQCOutcome classifies one delivery attempt. StatusCode is either an HTTP
// status or one of the negative transport codes above.
type RQCOutcome struct {
	Success        bool   `json:"success"`
	StatusCode     int    `json:"http_status_code"`
	Message        string `json:"message"`
	RedirectTarget string `json:"redirect_target,omitempty"`
}

// Retryable reports whether a failed attempt should be enqueued for redelivery.
// Server errors and transport failures are retryable; rejections are not.
func (o *RQCOutcome) Retryable() bool {
	if o.Success {
		return false
	}
	switch o.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		RQCErrConnection,
		RQCErrTimeout,
		RQCErrRequest:
		return true
	}
	return false
}

// RQCClient performs the outbound calls to the RQC service. It makes exactly
// one network call per invocation and never retries internally.
type RQCClient struct {
	db      *gorm.DB
	client  *http.Client
	baseURL string
}

// NewRQCClient constructs an RQCClient. The HTTP timeout is finite so a hung
// remote turns into a timeout outcome instead of blocking the caller.
func NewRQCClient(db *gorm.DB, client *http.Client) *RQCClient {
	if db == nil {
		db = config.DB
	}
	if client == nil {
		timeout := 30 * time.Second
		if raw := os.Getenv("RQC_TIMEOUT_SECONDS"); raw != "" {
			if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
				timeout = time.Duration(secs) * time.Second
			}
		}
		client = &http.Client{Timeout: timeout}
	}
	baseURL := os.Getenv("RQC_BASE_URL")
	if baseURL == "" {
		baseURL = defaultRQCBaseURL
	}
	return &RQCClient{db: db, client: client, baseURL: baseURL}
}

type rqcResponseBody struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	RedirectTarget string `json:"redirect_target"`
}

// SubmitArticle posts the assembled submission document to the RQC
// mhs_submission endpoint and classifies the response. On success the call is
// recorded: the editor list is pinned in a CallRecord and the article's
// unfrozen consent snapshots are marked as sent.
func (c *RQCClient) SubmitArticle(ctx context.Context, credentials *models.JournalAPICredentials, articleID uint, data *SubmissionData) *RQCOutcome {
	body, err := json.Marshal(data)
	if err != nil {
		return &RQCOutcome{StatusCode: RQCErrUnknown, Message: fmt.Sprintf("encode submission: %v", err)}
	}

	endpoint := fmt.Sprintf("%s/mhs_submission/%d/%d", c.baseURL, credentials.RQCJournalID, articleID)
	outcome := c.call(ctx, http.MethodPost, endpoint, credentials.APIKey, bytes.NewReader(body))

	if outcome.Success {
		if err := c.recordSuccessfulCall(ctx, articleID, data.EdAssignmentSet); err != nil {
			log.Printf("failed to record successful RQC call for article %d: %v", articleID, err)
		}
	}
	return outcome
}

// CheckAPIKey validates a credential pair against the mhs_apikeycheck
// endpoint without persisting anything.
func (c *RQCClient) CheckAPIKey(ctx context.Context, rqcJournalID int, apiKey string) *RQCOutcome {
	endpoint := fmt.Sprintf("%s/mhs_apikeycheck/%d", c.baseURL, rqcJournalID)
	return c.call(ctx, http.MethodGet, endpoint, apiKey, nil)
}

func (c *RQCClient) call(ctx context.Context, method, endpoint, apiKey string, body io.Reader) *RQCOutcome {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &RQCOutcome{StatusCode: RQCErrRequest, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	var decoded rqcResponseBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &decoded)

	message := decoded.Message
	if message == "" {
		message = decoded.Error
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return &RQCOutcome{Success: true, StatusCode: resp.StatusCode, Message: message}
	case resp.StatusCode == http.StatusSeeOther:
		// Interactive grading: RQC wants the caller to redirect the user.
		return &RQCOutcome{
			Success:        true,
			StatusCode:     resp.StatusCode,
			Message:        message,
			RedirectTarget: decoded.RedirectTarget,
		}
	default:
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &RQCOutcome{StatusCode: resp.StatusCode, Message: message}
	}
}

// classifyTransportError maps a client error onto the outcome taxonomy.
func classifyTransportError(err error) *RQCOutcome {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RQCOutcome{StatusCode: RQCErrTimeout, Message: err.Error()}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return &RQCOutcome{StatusCode: RQCErrTimeout, Message: err.Error()}
		}
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			return &RQCOutcome{StatusCode: RQCErrConnection, Message: err.Error()}
		}
		return &RQCOutcome{StatusCode: RQCErrRequest, Message: err.Error()}
	}
	return &RQCOutcome{StatusCode: RQCErrUnknown, Message: err.Error()}
}

// recordSuccessfulCall pins the editor list for the article and marks the
// non-declined consent snapshots as sent. Runs as a single transaction so two
// near-simultaneous first submissions converge on one stored list.
func (c *RQCClient) recordSuccessfulCall(ctx context.Context, articleID uint, editors []EditorInfo) error {
	editorJSON, err := json.Marshal(editors)
	if err != nil {
		return fmt.Errorf("encode editor list: %w", err)
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.CallRecord
		if err := tx.Where("article_id = ?", articleID).First(&record).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			record = models.CallRecord{ArticleID: articleID, EditorAssignments: editorJSON}
			if createErr := tx.Create(&record).Error; createErr != nil {
				// Unique index on article_id: a concurrent first submission
				// won; its list stands.
				if readErr := tx.Where("article_id = ?", articleID).First(&record).Error; readErr != nil {
					return createErr
				}
			}
		}

		return tx.Model(&models.ReviewerOptingDecisionForAssignment{}).
			Where("review_assignment_id IN (?)",
				tx.Model(&models.ReviewAssignment{}).
					Select("assignment_id").
					Where("article_id = ? AND date_declined IS NULL", articleID)).
			Update("sent_to_rqc", true).Error
	})
}
