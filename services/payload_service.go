package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
	"rqc-adapter-api/utils"
)

// SubmissionData is the document posted to the RQC mhs_submission endpoint.
type SubmissionData struct {
	InteractiveUser   string       `json:"interactive_user"`
	MHSSubmissionPage string       `json:"mhs_submissionpage"`
	Title             string       `json:"title"`
	ExternalUID       string       `json:"external_uid"`
	VisibleUID        string       `json:"visible_uid"`
	Submitted         string       `json:"submitted"`
	AuthorSet         []AuthorInfo `json:"author_set"`
	EdAssignmentSet   []EditorInfo `json:"edassgmt_set"`
	ReviewSet         []ReviewInfo `json:"review_set"`
	Decision          string       `json:"decision"`
}

// AuthorInfo is one entry of the author set. Order numbering is 1-based.
type AuthorInfo struct {
	Email       string  `json:"email"`
	FirstName   string  `json:"firstname"`
	LastName    string  `json:"lastname"`
	ORCID       *string `json:"orcid_id"`
	OrderNumber int     `json:"order_number"`
}

// EditorInfo is one entry of the editor-assignment set. RQC distinguishes
// level 1 (handling), level 2 (section) and level 3 (chief) editors.
type EditorInfo struct {
	Email     string  `json:"email"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	ORCID     *string `json:"orcid_id"`
	Level     int     `json:"level"`
}

// ReviewerInfo identifies a reviewer, possibly pseudonymized.
type ReviewerInfo struct {
	Email     string  `json:"email"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	ORCID     *string `json:"orcid_id"`
}

// AttachmentInfo is a review attachment. RQC does not accept attachments yet,
// so the set is always sent empty.
type AttachmentInfo struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// ReviewInfo is one entry of the review set.
type ReviewInfo struct {
	VisibleID         string           `json:"visible_id"`
	Invited           *string          `json:"invited"`
	Agreed            *string          `json:"agreed"`
	Expected          *string          `json:"expected"`
	Submitted         *string          `json:"submitted"`
	Text              string           `json:"text"`
	IsHTML            bool             `json:"is_html"`
	SuggestedDecision string           `json:"suggested_decision"`
	Reviewer          ReviewerInfo     `json:"reviewer"`
	AttachmentSet     []AttachmentInfo `json:"attachment_set"`
}

// PayloadService assembles the full submission document from current platform
// state, applying the RQC bounding rules and the editor-set immutability rule.
type PayloadService struct {
	db         *gorm.DB
	anonymizer *AnonymizerService
}

// NewPayloadService constructs a PayloadService.
func NewPayloadService(db *gorm.DB) *PayloadService {
	if db == nil {
		db = config.DB
	}
	return &PayloadService{db: db, anonymizer: NewAnonymizerService(db)}
}

// FetchPostData builds the submission document for one article. An
// interactive call carries the acting user's email and the page RQC should
// redirect back to; implicit calls carry neither.
func (s *PayloadService) FetchPostData(ctx context.Context, article *models.Article, journal *models.Journal, submissionPage string, interactive bool, user *models.User) (*SubmissionData, error) {
	data := &SubmissionData{
		Title:       utils.TruncateSingleLine(article.Title),
		ExternalUID: strconv.FormatUint(uint64(article.ArticleID), 10),
		VisibleUID:  strconv.FormatUint(uint64(article.ArticleID), 10),
		Submitted:   utils.ConvertDateToRQCFormat(article.DateSubmitted),
	}

	// An implicit call must never request an interactive redirect, so the
	// submission page travels only together with the user email.
	if interactive && user != nil && user.Email != "" {
		data.InteractiveUser = utils.TruncateSingleLine(user.Email)
		data.MHSSubmissionPage = utils.TruncateSingleLine(submissionPage)
	}

	authors, err := s.fetchAuthorSet(ctx, article)
	if err != nil {
		return nil, err
	}
	data.AuthorSet = authors

	editors, err := s.fetchEditorSet(ctx, article)
	if err != nil {
		return nil, err
	}
	data.EdAssignmentSet = editors

	reviews, err := s.fetchReviewSet(ctx, article, journal)
	if err != nil {
		return nil, err
	}
	data.ReviewSet = reviews

	decision, err := s.fetchDecision(ctx, article)
	if err != nil {
		return nil, err
	}
	data.Decision = decision

	return data, nil
}

// fetchAuthorSet returns the single correspondence-author entry. The RQC API
// only wants correspondence authors, and the platform has exactly one.
func (s *PayloadService) fetchAuthorSet(ctx context.Context, article *models.Article) ([]AuthorInfo, error) {
	var author models.User
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", article.CorrespondenceAuthorID).
		First(&author).Error; err != nil {
		return nil, fmt.Errorf("load correspondence author: %w", err)
	}

	order := 0
	var frozen models.FrozenAuthorRecord
	err := s.db.WithContext(ctx).
		Where("article_id = ? AND author_id = ?", article.ArticleID, author.UserID).
		First(&frozen).Error
	if err == nil {
		order = frozen.Order
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Platform order is 0-based, RQC numbering starts at 1.
	return []AuthorInfo{{
		Email:       utils.TruncateSingleLine(author.Email),
		FirstName:   utils.TruncateSingleLine(author.FirstName),
		LastName:    utils.TruncateSingleLine(author.LastName),
		ORCID:       truncateOptional(author.ORCID),
		OrderNumber: order + 1,
	}}, nil
}

// fetchEditorSet returns the editor-assignment set. If a successful call was
// already recorded the stored list is returned verbatim; the RQC API forbids
// the field from changing between calls.
func (s *PayloadService) fetchEditorSet(ctx context.Context, article *models.Article) ([]EditorInfo, error) {
	var record models.CallRecord
	err := s.db.WithContext(ctx).Where("article_id = ?", article.ArticleID).First(&record).Error
	if err == nil {
		var stored []EditorInfo
		if unmarshalErr := json.Unmarshal(record.EditorAssignments, &stored); unmarshalErr != nil {
			return nil, fmt.Errorf("decode stored editor list for article %d: %w", article.ArticleID, unmarshalErr)
		}
		return stored, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var assignments []models.EditorAssignment
	if err := s.db.WithContext(ctx).Preload("Editor").
		Where("article_id = ?", article.ArticleID).
		Order("assigned DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	var drafts []models.DecisionDraft
	if err := s.db.WithContext(ctx).Preload("SectionEditor").Preload("Editor").
		Where("article_id = ?", article.ArticleID).
		Find(&drafts).Error; err != nil {
		return nil, err
	}

	return ReduceEditorSet(CollectEditorCandidates(assignments, drafts)), nil
}

// CollectEditorCandidates flattens assignments and decision drafts into a
// level-tagged candidate list in insertion order. Assigned section editors are
// level 1, assigned chief editors level 3; draft authors and draft reviewers
// contribute the same levels.
func CollectEditorCandidates(assignments []models.EditorAssignment, drafts []models.DecisionDraft) []EditorInfo {
	var candidates []EditorInfo
	for _, assignment := range assignments {
		level := 1
		if assignment.EditorType == models.EditorTypeEditor {
			level = 3
		}
		candidates = append(candidates, editorInfoFor(&assignment.Editor, level))
	}
	for _, draft := range drafts {
		// Section editors should already be assigned; included anyway in case
		// that constraint is not enforced upstream.
		if draft.SectionEditor != nil {
			candidates = append(candidates, editorInfoFor(draft.SectionEditor, 1))
		}
		// Chief editors can receive drafts without being assigned to the
		// article; they are involved in the decision and must be reported.
		if draft.Editor != nil {
			candidates = append(candidates, editorInfoFor(draft.Editor, 3))
		}
	}
	return candidates
}

type editorKey struct {
	email string
	level int
}

// ReduceEditorSet deduplicates candidates on (email, level), promotes the
// first entry to level 1 when no level-1 editor exists (the API requires one),
// and sorts ascending by level so the cap never drops a level-1 entry.
func ReduceEditorSet(candidates []EditorInfo) []EditorInfo {
	seen := make(map[editorKey]struct{})
	var set []EditorInfo
	hasLevelOne := false

	for _, candidate := range candidates {
		key := editorKey{email: candidate.Email, level: candidate.Level}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		set = append(set, candidate)
		if candidate.Level == 1 {
			hasLevelOne = true
		}
	}

	if !hasLevelOne && len(set) > 0 {
		set[0].Level = 1
	}

	sort.SliceStable(set, func(i, j int) bool { return set[i].Level < set[j].Level })

	if len(set) > utils.MaxListLength {
		set = set[:utils.MaxListLength]
	}
	return set
}

func editorInfoFor(editor *models.User, level int) EditorInfo {
	return EditorInfo{
		Email:     utils.TruncateSingleLine(editor.Email),
		FirstName: utils.TruncateSingleLine(editor.FirstName),
		LastName:  utils.TruncateSingleLine(editor.LastName),
		ORCID:     truncateOptional(editor.ORCID),
		Level:     level,
	}
}

// fetchReviewSet builds the review set from the article's assignments and
// their consent snapshots.
func (s *PayloadService) fetchReviewSet(ctx context.Context, article *models.Article, journal *models.Journal) ([]ReviewInfo, error) {
	var assignments []models.ReviewAssignment
	if err := s.db.WithContext(ctx).
		Preload("Reviewer").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("form_order ASC") }).
		Where("article_id = ?", article.ArticleID).
		Order("date_requested ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	var snapshots []models.ReviewerOptingDecisionForAssignment
	if err := s.db.WithContext(ctx).
		Where("review_assignment_id IN (?)",
			s.db.Model(&models.ReviewAssignment{}).
				Select("assignment_id").
				Where("article_id = ?", article.ArticleID)).
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	snapshotByAssignment := make(map[uint]*models.ReviewerOptingDecisionForAssignment, len(snapshots))
	for i := range snapshots {
		snapshotByAssignment[snapshots[i].ReviewAssignmentID] = &snapshots[i]
	}

	selected := SelectReviewAssignments(assignments, snapshotByAssignment)

	var reviews []ReviewInfo
	for i := range selected {
		assignment := selected[i]
		snapshot := snapshotByAssignment[assignment.AssignmentID]
		optedIn := snapshot != nil && snapshot.OptingStatus == models.OptingStatusOptIn

		reviewer, err := s.reviewerInfo(ctx, &assignment.Reviewer, optedIn, journal)
		if err != nil {
			return nil, err
		}

		text := ""
		if optedIn {
			text = utils.TruncateMultiLine(ReviewReportText(assignment.Answers))
		}

		reviews = append(reviews, ReviewInfo{
			// A 1-based integer ordered by invitation date serves as the
			// review's visible name.
			VisibleID:         strconv.Itoa(i + 1),
			Invited:           utils.ConvertOptionalDate(&assignment.DateRequested),
			Agreed:            utils.ConvertOptionalDate(assignment.DateAccepted),
			Expected:          utils.ConvertOptionalDate(assignment.DateDue),
			Submitted:         utils.ConvertOptionalDate(assignment.DateComplete),
			Text:              text,
			IsHTML:            true,
			SuggestedDecision: utils.ConvertReviewDecisionToRQCFormat(assignment.Decision),
			Reviewer:          reviewer,
			AttachmentSet:     []AttachmentInfo{},
		})
	}

	// Reviews beyond the cap are dropped but never silently: the identities
	// of the cut entries go to the log.
	if len(reviews) > utils.MaxListLength {
		var droppedIDs []uint
		for _, assignment := range selected[utils.MaxListLength:] {
			droppedIDs = append(droppedIDs, assignment.AssignmentID)
		}
		log.Printf("RQC call for article %d: review set exceeded %d entries, %d reviews not included (assignments %v)",
			article.ArticleID, utils.MaxListLength, len(reviews)-utils.MaxListLength, droppedIDs)
		reviews = reviews[:utils.MaxListLength]
	}

	return reviews, nil
}

// SelectReviewAssignments picks the assignments that belong in the review
// set: accepted ones, plus declined ones whose data was already sent (those
// are treated as accepted-but-incomplete). In either case the review round
// must still exist unless the data already went out.
func SelectReviewAssignments(assignments []models.ReviewAssignment, snapshots map[uint]*models.ReviewerOptingDecisionForAssignment) []*models.ReviewAssignment {
	var selected []*models.ReviewAssignment
	for i := range assignments {
		assignment := &assignments[i]
		snapshot := snapshots[assignment.AssignmentID]
		sent := snapshot != nil && snapshot.SentToRQC

		// A deleted round removes the review from reporting, unless it was
		// already transmitted.
		if assignment.ReviewRoundID == nil && !sent {
			continue
		}

		accepted := assignment.DateAccepted != nil
		declinedAfterSent := assignment.DateDeclined != nil && sent
		if accepted || declinedAfterSent {
			selected = append(selected, assignment)
		}
	}
	return selected
}

// ReviewReportText concatenates all form answers with single spaces, in form
// order.
func ReviewReportText(answers []models.ReviewFormAnswer) string {
	parts := make([]string, 0, len(answers))
	for _, answer := range answers {
		parts = append(parts, answer.Answer)
	}
	return strings.Join(parts, " ")
}

// reviewerInfo returns the reviewer's identity, pseudonymized unless the
// reviewer opted in. Opted-out reviewers get a salted pseudo address and no
// further personal data.
func (s *PayloadService) reviewerInfo(ctx context.Context, reviewer *models.User, optedIn bool, journal *models.Journal) (ReviewerInfo, error) {
	if optedIn {
		return ReviewerInfo{
			Email:     utils.TruncateSingleLine(reviewer.Email),
			FirstName: utils.TruncateSingleLine(reviewer.FirstName),
			LastName:  utils.TruncateSingleLine(reviewer.LastName),
			ORCID:     truncateOptional(reviewer.ORCID),
		}, nil
	}

	salt, err := s.anonymizer.JournalSaltFor(ctx, journal.JournalID)
	if err != nil {
		return ReviewerInfo{}, fmt.Errorf("load journal salt: %w", err)
	}
	return ReviewerInfo{
		Email:     CreatePseudoAddress(reviewer.Email, salt),
		FirstName: "",
		LastName:  "",
		ORCID:     nil,
	}, nil
}

// fetchDecision derives the decision field from article state and the most
// recent revision request.
func (s *PayloadService) fetchDecision(ctx context.Context, article *models.Article) (string, error) {
	var revision models.RevisionRequest
	err := s.db.WithContext(ctx).
		Where("article_id = ?", article.ArticleID).
		Order("date_requested DESC").
		First(&revision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.GetEditorialDecision(article, nil), nil
		}
		return "", err
	}
	return utils.GetEditorialDecision(article, &revision), nil
}

func truncateOptional(value *string) *string {
	if value == nil {
		return nil
	}
	truncated := utils.TruncateSingleLine(*value)
	return &truncated
}
