package models

import "time"

// Workflow stages relevant to the adapter.
const (
	StageUnderReview   = "under_review"
	StageUnderRevision = "under_revision"
	StagePublished     = "published"
)

// Article is the submission being graded. Its primary key is the natural key
// for all RQC correlation and must never be reused.
type Article struct {
	ArticleID              uint       `gorm:"primaryKey;column:article_id" json:"article_id"`
	JournalID              uint       `gorm:"column:journal_id" json:"journal_id"`
	Title                  string     `gorm:"column:title" json:"title"`
	Stage                  string     `gorm:"column:stage" json:"stage"`
	DateSubmitted          time.Time  `gorm:"column:date_submitted" json:"date_submitted"`
	DateAccepted           *time.Time `gorm:"column:date_accepted" json:"date_accepted,omitempty"`
	DateDeclined           *time.Time `gorm:"column:date_declined" json:"date_declined,omitempty"`
	CorrespondenceAuthorID uint       `gorm:"column:correspondence_author_id" json:"correspondence_author_id"`

	Journal              Journal `gorm:"foreignKey:JournalID" json:"journal,omitempty"`
	CorrespondenceAuthor User    `gorm:"foreignKey:CorrespondenceAuthorID" json:"correspondence_author,omitempty"`
}

func (Article) TableName() string { return "articles" }

// FrozenAuthorRecord pins an author's position in the article's author list at
// submission time. Order is 0-based; RQC numbering starts at 1.
type FrozenAuthorRecord struct {
	RecordID  uint `gorm:"primaryKey;column:record_id" json:"record_id"`
	ArticleID uint `gorm:"column:article_id;index" json:"article_id"`
	AuthorID  uint `gorm:"column:author_id" json:"author_id"`
	Order     int  `gorm:"column:author_order" json:"author_order"`
}

func (FrozenAuthorRecord) TableName() string { return "frozen_author_records" }
