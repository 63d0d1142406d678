package models

import "time"

// DelayedCall is a persisted retry work item for a failed submission.
// Created with the full retry budget; decremented on every failed re-attempt
// and deleted on success or exhaustion.
type DelayedCall struct {
	DelayedCallID  uint      `gorm:"primaryKey;column:delayed_call_id" json:"delayed_call_id"`
	ArticleID      uint      `gorm:"column:article_id;index" json:"article_id"`
	FailureReason  string    `gorm:"column:failure_reason" json:"failure_reason"`
	RemainingTries int       `gorm:"column:remaining_tries" json:"remaining_tries"`
	LastAttemptAt  time.Time `gorm:"column:last_attempt_at" json:"last_attempt_at"`
	CreateAt       time.Time `gorm:"column:create_at" json:"create_at"`

	Article Article `gorm:"foreignKey:ArticleID" json:"article,omitempty"`
}

func (DelayedCall) TableName() string { return "delayed_calls" }
