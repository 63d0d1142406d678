package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rqc-adapter-api/models"
	"rqc-adapter-api/services"
)

// GetRQCSettings returns the journal's current RQC configuration state. The
// API key itself is never echoed back, only whether one is set.
func GetRQCSettings(c *gin.Context) {
	journalID, ok := journalParam(c)
	if !ok {
		return
	}

	service := services.NewCredentialsService(getDB(), nil)
	credentials, err := service.Lookup(c.Request.Context(), journalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load RQC settings"})
		return
	}

	if credentials == nil {
		c.JSON(http.StatusOK, gin.H{"rqc_journal_id": nil, "api_key_set": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rqc_journal_id": credentials.RQCJournalID,
		"api_key_set":    credentials.APIKey != "",
	})
}

// UpdateRQCSettings validates a submitted credential pair against RQC and
// stores it. Validation errors come back per field; system errors are logged
// with context and masked.
func UpdateRQCSettings(c *gin.Context) {
	journalID, ok := journalParam(c)
	if !ok {
		return
	}

	var input services.CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	db := getDB()
	var journal models.Journal
	if err := db.Where("journal_id = ?", journalID).First(&journal).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		return
	}

	actorID := actingUserID(c)
	service := services.NewCredentialsService(db, nil)
	_, fieldErrors, err := service.ValidateAndSave(c.Request.Context(), &journal, actorID, &input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Settings update failed due to a system error."})
		return
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "Settings update failed.",
			"field_errors": fieldErrors,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "RQC settings updated successfully."})
}

func journalParam(c *gin.Context) (uint, bool) {
	journalID, err := strconv.ParseUint(c.Param("journal_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid journal id"})
		return 0, false
	}
	return uint(journalID), true
}

func actingUserID(c *gin.Context) uint {
	if raw := c.GetHeader("X-User-ID"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return uint(id)
		}
	}
	return 0
}
