package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rqc-adapter-api/models"
	"rqc-adapter-api/services"
)

// Workflow events that trigger an implicit submission. The RQC API requires a
// call whenever the editorial decision for an article changes.
var implicitEvents = map[string]bool{
	"article-accepted":    true,
	"article-declined":    true,
	"article-undeclined":  true,
	"revisions-requested": true,
	"reviewer-accepted":   false, // handled separately, no submission
}

// HandleWorkflowEvent receives editorial-workflow events from the platform.
// Decision events fire an implicit (non-interactive) submission; the
// reviewer-accepted event snapshots the reviewer's consent instead.
func HandleWorkflowEvent(c *gin.Context) {
	event := c.Param("event")
	if _, known := implicitEvents[event]; !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown workflow event"})
		return
	}

	var body struct {
		ArticleID    uint `json:"article_id"`
		AssignmentID uint `json:"assignment_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	db := getDB()

	if event == "reviewer-accepted" {
		var assignment models.ReviewAssignment
		if err := db.Where("assignment_id = ?", body.AssignmentID).First(&assignment).Error; err != nil {
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
		opting := services.NewOptingService(db)
		if err := opting.CreateAssignmentDecision(c.Request.Context(), &assignment, journalID); err != nil {
			log.Printf("failed to create opting snapshot for assignment %d: %v", assignment.AssignmentID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record consent snapshot"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"success": true})
		return
	}

	if body.ArticleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "article_id is required"})
		return
	}

	grading := services.NewGradingService(db, nil)
	outcome, err := grading.ImplicitSubmission(c.Request.Context(), body.ArticleID)
	if err != nil {
		if errors.Is(err, services.ErrCredentialsNotFound) {
			// Journals without RQC credentials simply do not report.
			c.JSON(http.StatusAccepted, gin.H{"success": true, "skipped": true})
			return
		}
		log.Printf("implicit RQC call for article %d (%s) failed: %v", body.ArticleID, event, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Implicit submission failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":          outcome.Success,
		"http_status_code": strconv.Itoa(outcome.StatusCode),
	})
}
