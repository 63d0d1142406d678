package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
	"rqc-adapter-api/utils"
)

// CredentialsInput is the raw form input for the journal's RQC settings.
type CredentialsInput struct {
	RQCJournalID string `json:"rqc_journal_id"`
	APIKey       string `json:"api_key"`
}

// FieldErrors maps input field names to validation messages.
type FieldErrors map[string]string

// CredentialsService validates and stores the per-journal credential pair.
type CredentialsService struct {
	db     *gorm.DB
	client *RQCClient
}

// NewCredentialsService constructs a CredentialsService.
func NewCredentialsService(db *gorm.DB, client *http.Client) *CredentialsService {
	if db == nil {
		db = config.DB
	}
	return &CredentialsService{db: db, client: NewRQCClient(db, client)}
}

// ValidateInput checks the credential pair's format locally, before any
// remote call is made.
func ValidateInput(input *CredentialsInput) (int, FieldErrors) {
	fieldErrors := FieldErrors{}

	id, ok := utils.ParseRQCJournalID(input.RQCJournalID)
	if input.RQCJournalID == "" {
		fieldErrors["rqc_journal_id"] = "This field is required."
	} else if !ok {
		fieldErrors["rqc_journal_id"] = "Journal ID must be a number"
	}

	if input.APIKey == "" {
		fieldErrors["api_key"] = "This field is required."
	} else if !utils.ValidateAPIKey(input.APIKey) {
		fieldErrors["api_key"] = "The API key must only contain alphanumeric characters."
	}

	return id, fieldErrors
}

// ValidateAndSave verifies the pair against RQC and persists it. The two
// values are only valid together, so the write is a single transaction and
// never leaves a half-updated pair behind.
func (s *CredentialsService) ValidateAndSave(ctx context.Context, journal *models.Journal, actorID uint, input *CredentialsInput) (*models.JournalAPICredentials, FieldErrors, error) {
	id, fieldErrors := ValidateInput(input)
	if len(fieldErrors) > 0 {
		return nil, fieldErrors, nil
	}

	outcome := s.client.CheckAPIKey(ctx, id, input.APIKey)
	if !outcome.Success {
		log.Printf("RQC rejected credentials for journal %s (user %d): %s", journal.Name, actorID, outcome.Message)
		return nil, FieldErrors{"credentials": fmt.Sprintf("RQC did not accept the credentials. Details: %s", outcome.Message)}, nil
	}

	credentials := models.JournalAPICredentials{
		JournalID:    journal.JournalID,
		RQCJournalID: id,
		APIKey:       input.APIKey,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.JournalAPICredentials
		if err := tx.Where("journal_id = ?", journal.JournalID).First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return tx.Create(&credentials).Error
		}
		credentials.CredentialsID = existing.CredentialsID
		credentials.CreateAt = existing.CreateAt
		return tx.Save(&credentials).Error
	})
	if err != nil {
		log.Printf("Failed to save RQC settings for journal %s by user %d. Details: %v", journal.Name, actorID, err)
		return nil, nil, err
	}

	log.Printf("RQC settings updated successfully for journal %s by user %d", journal.Name, actorID)
	return &credentials, nil, nil
}

// Lookup returns the journal's stored credentials, or nil when unset.
func (s *CredentialsService) Lookup(ctx context.Context, journalID uint) (*models.JournalAPICredentials, error) {
	var credentials models.JournalAPICredentials
	err := s.db.WithContext(ctx).Where("journal_id = ?", journalID).First(&credentials).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credentials, nil
}
