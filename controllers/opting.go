package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rqc-adapter-api/models"
	"rqc-adapter-api/services"
)

// SetReviewerOptingStatus handles the consent-capture trigger. The reviewer
// is identified either by an access-code token (resolved by the middleware)
// or by the platform-supplied reviewer id. The journal-level decision is
// always recorded; the per-assignment snapshot only while unfrozen.
func SetReviewerOptingStatus(c *gin.Context) {
	assignmentID, err := strconv.ParseUint(c.Param("assignment_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment id"})
		return
	}

	var body struct {
		Status   string `json:"status"`
		Referrer string `json:"referrer"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Status != models.OptingStatusOptIn && body.Status != models.OptingStatusOptOut {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be opt_in or opt_out"})
		return
	}

	db := getDB()

	// The assignment must still be open and its article under review. An
	// access code additionally has to match the assignment it was issued for.
	query := db.Preload("Reviewer").
		Joins("JOIN articles ON articles.article_id = review_assignments.article_id").
		Where("review_assignments.assignment_id = ?", assignmentID).
		Where("review_assignments.is_complete = ?", false).
		Where("articles.stage = ?", models.StageUnderReview)

	if accessAssignmentID, ok := c.Get("accessAssignmentID"); ok {
		if accessAssignmentID.(uint) != uint(assignmentID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access code does not match this review assignment"})
			return
		}
	} else if rawReviewerID, ok := c.Get("reviewerID"); ok {
		reviewerID, convErr := strconv.ParseUint(rawReviewerID.(string), 10, 64)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reviewer id"})
			return
		}
		query = query.Where("review_assignments.reviewer_id = ?", reviewerID)
	}

	var assignment models.ReviewAssignment
	if err := query.First(&assignment).Error; err != nil {
		// Without the assignment no review-form redirect can be built; the
		// caller falls back to the page the reviewer came from.
		log.Printf("RQC: Error while setting reviewer opting status. ReviewAssignment %d not found: %v", assignmentID, err)
		redirect := body.Referrer
		if redirect == "" {
			redirect = "/dashboard"
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":           "An unexpected error occurred while updating your participation choice.",
			"redirect_target": redirect,
		})
		return
	}

	var journalID uint
	if err := db.Model(&models.Article{}).
		Where("article_id = ?", assignment.ArticleID).
		Select("journal_id").Scan(&journalID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred while updating your participation choice."})
		return
	}

	opting := services.NewOptingService(db)
	if _, err := opting.SetOptingStatus(c.Request.Context(), &assignment, journalID, body.Status); err != nil {
		log.Printf("RQC: failed to set opting status for assignment %d: %v", assignmentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred while updating your participation choice."})
		return
	}

	message := "Thank you for your response. Your preference has been recorded."
	if body.Status == models.OptingStatusOptIn {
		message = "Thank you for choosing to participate in RQC!"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         message,
		"redirect_target": reviewFormTarget(assignment.AssignmentID, c.Query("access_code")),
	})
}

// GetReviewerOptingState reports whether the opting form must be shown for an
// assignment: only when the journal has credentials and the reviewer has no
// valid opting decision.
func GetReviewerOptingState(c *gin.Context) {
	assignmentID, err := strconv.ParseUint(c.Param("assignment_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment id"})
		return
	}

	db := getDB()
	var assignment models.ReviewAssignment
	if err := db.Where("assignment_id = ?", assignmentID).First(&assignment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review assignment not found"})
		return
	}

	var journalID uint
	if err := db.Model(&models.Article{}).
		Where("article_id = ?", assignment.ArticleID).
		Select("journal_id").Scan(&journalID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve journal"})
		return
	}

	var credentialCount int64
	if err := db.Model(&models.JournalAPICredentials{}).
		Where("journal_id = ?", journalID).Count(&credentialCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve journal settings"})
		return
	}
	if credentialCount == 0 {
		c.JSON(http.StatusOK, gin.H{"show_opting_form": false})
		return
	}

	opting := services.NewOptingService(db)
	consent, err := opting.ResolveConsent(c.Request.Context(), assignment.ReviewerID, journalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve opting state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"show_opting_form": consent == services.ConsentAbsent,
		"consent":          consent,
	})
}

func reviewFormTarget(assignmentID uint, accessCode string) string {
	target := "/review/assignment/" + strconv.FormatUint(uint64(assignmentID), 10)
	if accessCode != "" {
		target += "?access_code=" + accessCode
	}
	return target
}
