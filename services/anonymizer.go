package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
	"gorm.io/gorm"

	"rqc-adapter-api/config"
	"rqc-adapter-api/models"
)

// PseudoAddressDomain is the fixed suffix of every pseudonymous reviewer
// address. RQC requires an email-shaped value even for anonymized reviewers.
const PseudoAddressDomain = "@example.edu"

const saltByteLength = 32

// AnonymizerService derives stable pseudonymous reviewer identities. The
// derivation is keyed with a per-journal salt so the same reviewer cannot be
// linked across journals.
type AnonymizerService struct {
	db *gorm.DB
}

// NewAnonymizerService constructs an AnonymizerService.
func NewAnonymizerService(db *gorm.DB) *AnonymizerService {
	if db == nil {
		db = config.DB
	}
	return &AnonymizerService{db: db}
}

// GenerateRandomSalt returns a cryptographically unpredictable salt.
func GenerateRandomSalt() (string, error) {
	buf := make([]byte, saltByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreatePseudoAddress derives the pseudonymous address for an email under the
// given salt. Deterministic for a fixed (email, salt) pair and one-way.
func CreatePseudoAddress(email, salt string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	digest := sha3.Sum256([]byte(salt + "\x00" + normalized))
	return hex.EncodeToString(digest[:16]) + PseudoAddressDomain
}

// JournalSaltFor returns the journal's salt, creating it on first use. Two
// concurrent first-time callers converge on one stored salt: the loser of the
// insert race reads back the winner's row.
func (s *AnonymizerService) JournalSaltFor(ctx context.Context, journalID uint) (string, error) {
	var record models.JournalSalt
	err := s.db.WithContext(ctx).Where("journal_id = ?", journalID).First(&record).Error
	if err == nil {
		return record.Salt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	salt, err := GenerateRandomSalt()
	if err != nil {
		return "", err
	}

	record = models.JournalSalt{JournalID: journalID, Salt: salt}
	if createErr := s.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		// Unique index on journal_id: another writer got there first.
		var existing models.JournalSalt
		if readErr := s.db.WithContext(ctx).Where("journal_id = ?", journalID).First(&existing).Error; readErr != nil {
			return "", createErr
		}
		return existing.Salt, nil
	}
	return record.Salt, nil
}
