package models

import "time"

// CallRecord caches the editor-assignment list as sent on the first successful
// submission for an article. The RQC API forbids that list from changing
// between calls, so once a record exists its stored list is authoritative.
type CallRecord struct {
	CallID            uint      `gorm:"primaryKey;column:call_id" json:"call_id"`
	ArticleID         uint      `gorm:"column:article_id;uniqueIndex" json:"article_id"`
	EditorAssignments []byte    `gorm:"column:editor_assignments;type:json" json:"editor_assignments"`
	CreateAt          time.Time `gorm:"column:create_at" json:"create_at"`

	Article Article `gorm:"foreignKey:ArticleID" json:"article,omitempty"`
}

func (CallRecord) TableName() string { return "call_records" }
