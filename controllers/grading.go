package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
	"rqc-adapter-api/services"
	"rqc-adapter-api/utils"
)

// SubmitArticleForGrading handles the explicit "submit article for grading"
// trigger. The acting user's email and the page to return to after grading
// come from the platform; the response carries a status message and the
// target the caller should redirect to.
func SubmitArticleForGrading(c *gin.Context) {
	journalID, articleID, ok := pathIDs(c)
	if !ok {
		return
	}

	var body struct {
		UserEmail string `json:"user_email"`
		Referrer  string `json:"referrer"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	body.UserEmail = utils.SanitizeInput(body.UserEmail)
	body.Referrer = utils.SanitizeInput(body.Referrer)
	if body.UserEmail != "" && !utils.ValidateEmail(body.UserEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user email"})
		return
	}

	db := config.DB
	var article models.Article
	if err := db.Where("article_id = ? AND journal_id = ?", articleID, journalID).First(&article).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	var journal models.Journal
	if err := db.Where("journal_id = ?", journalID).First(&journal).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		return
	}

	submissionPage := body.Referrer
	if submissionPage == "" {
		submissionPage = fmt.Sprintf("/review/%d", article.ArticleID)
	}

	var user *models.User
	if body.UserEmail != "" {
		user = &models.User{Email: body.UserEmail}
	}

	grading := services.NewGradingService(db, nil)
	outcome, err := grading.SubmitForGrading(c.Request.Context(), &article, &journal, submissionPage, true, user)
	if err != nil {
		if errors.Is(err, services.ErrCredentialsNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success":         false,
				"message":         "Review Quality Collector API credentials not found.",
				"redirect_target": submissionPage,
			})
			return
		}
		log.Printf("RQC submission for article %d failed: %v", article.ArticleID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Submission failed due to a system error."})
		return
	}

	if outcome.Success {
		redirect := submissionPage
		message := "Successfully submitted article."
		if outcome.StatusCode == http.StatusSeeOther && outcome.RedirectTarget != "" {
			redirect = outcome.RedirectTarget
		}
		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"message":         message,
			"redirect_target": redirect,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         false,
		"message":         failureMessage(outcome),
		"redirect_target": submissionPage,
	})
}

// failureMessage turns a delivery outcome into the message shown to the
// editor. Retryable failures announce the automatic resend.
func failureMessage(outcome *services.RQCOutcome) string {
	switch outcome.StatusCode {
	case http.StatusBadRequest:
		return fmt.Sprintf("Sending the data to RQC failed. The message sent to RQC was malformed. Details: %s", outcome.Message)
	case http.StatusForbidden:
		return fmt.Sprintf("Sending the data to RQC failed. The API key was wrong. Please check the validity of your API credentials. Details: %s", outcome.Message)
	case http.StatusNotFound:
		return fmt.Sprintf("Sending the data to RQC failed. The whole URL was malformed or no journal with the given journal id exists at RQC. Details: %s", outcome.Message)
	default:
		if outcome.Retryable() {
			return fmt.Sprintf("Sending the data to RQC failed. There might be a server error on the side of RQC, the data will be automatically resent shortly. Details: %s", outcome.Message)
		}
		return fmt.Sprintf("Sending the data to RQC failed. Details: %s", outcome.Message)
	}
}

func pathIDs(c *gin.Context) (uint, uint, bool) {
	journalID, err := strconv.ParseUint(c.Param("journal_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid journal id"})
		return 0, 0, false
	}
	articleID, err := strconv.ParseUint(c.Param("article_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article id"})
		return 0, 0, false
	}
	return uint(journalID), uint(articleID), true
}

func getDB() *gorm.DB { return config.DB }
