package models

import "time"

// Journal represents one hosted journal. Credentials, salts and reviewer
// opting decisions are all scoped to a journal.
type Journal struct {
	JournalID    uint       `gorm:"primaryKey;column:journal_id" json:"journal_id"`
	Name         string     `gorm:"column:name" json:"name"`
	Domain       string     `gorm:"column:domain" json:"domain"`
	ContactEmail string     `gorm:"column:contact_email" json:"contact_email"`
	CreateAt     time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
}

func (Journal) TableName() string { return "journals" }

// JournalAPICredentials holds the per-journal RQC identifier and API key.
// The two values are only valid as a pair and are always written together.
type JournalAPICredentials struct {
	CredentialsID uint       `gorm:"primaryKey;column:credentials_id" json:"credentials_id"`
	JournalID     uint       `gorm:"column:journal_id;uniqueIndex" json:"journal_id"`
	RQCJournalID  int        `gorm:"column:rqc_journal_id" json:"rqc_journal_id"`
	APIKey        string     `gorm:"column:api_key" json:"-"`
	CreateAt      time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt      *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`

	Journal Journal `gorm:"foreignKey:JournalID" json:"journal,omitempty"`
}

func (JournalAPICredentials) TableName() string { return "journal_api_credentials" }

// JournalSalt is the per-journal secret used to derive pseudonymous reviewer
// addresses. Created lazily on first use; the unique index makes concurrent
// first-time writers converge on a single salt.
type JournalSalt struct {
	SaltID    uint      `gorm:"primaryKey;column:salt_id" json:"salt_id"`
	JournalID uint      `gorm:"column:journal_id;uniqueIndex" json:"journal_id"`
	Salt      string    `gorm:"column:salt" json:"-"`
	CreateAt  time.Time `gorm:"column:create_at" json:"create_at"`
}

func (JournalSalt) TableName() string { return "journal_salts" }
