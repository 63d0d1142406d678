package models

import "time"

// ReviewRound groups review assignments. Rounds can be deleted by editors, in
// which case assignments keep a NULL round reference.
type ReviewRound struct {
	RoundID     uint      `gorm:"primaryKey;column:round_id" json:"round_id"`
	ArticleID   uint      `gorm:"column:article_id;index" json:"article_id"`
	RoundNumber int       `gorm:"column:round_number" json:"round_number"`
	CreateAt    time.Time `gorm:"column:create_at" json:"create_at"`
}

func (ReviewRound) TableName() string { return "review_rounds" }

// ReviewAssignment is one reviewer's invitation to review one article.
// DateAccepted is cleared again when the reviewer later declines.
type ReviewAssignment struct {
	AssignmentID  uint       `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	ArticleID     uint       `gorm:"column:article_id;index" json:"article_id"`
	ReviewerID    uint       `gorm:"column:reviewer_id" json:"reviewer_id"`
	ReviewRoundID *uint      `gorm:"column:review_round_id" json:"review_round_id,omitempty"`
	DateRequested time.Time  `gorm:"column:date_requested" json:"date_requested"`
	DateAccepted  *time.Time `gorm:"column:date_accepted" json:"date_accepted,omitempty"`
	DateDeclined  *time.Time `gorm:"column:date_declined" json:"date_declined,omitempty"`
	DateDue       *time.Time `gorm:"column:date_due" json:"date_due,omitempty"`
	DateComplete  *time.Time `gorm:"column:date_complete" json:"date_complete,omitempty"`
	IsComplete    bool       `gorm:"column:is_complete" json:"is_complete"`
	Decision      *string    `gorm:"column:decision" json:"decision,omitempty"`

	Reviewer User               `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Round    *ReviewRound       `gorm:"foreignKey:ReviewRoundID" json:"round,omitempty"`
	Answers  []ReviewFormAnswer `gorm:"foreignKey:AssignmentID" json:"answers,omitempty"`
}

func (ReviewAssignment) TableName() string { return "review_assignments" }

// ReviewFormAnswer is one answer field of the review form, kept in form order.
type ReviewFormAnswer struct {
	AnswerID     uint   `gorm:"primaryKey;column:answer_id" json:"answer_id"`
	AssignmentID uint   `gorm:"column:assignment_id;index" json:"assignment_id"`
	FormOrder    int    `gorm:"column:form_order" json:"form_order"`
	Answer       string `gorm:"column:answer" json:"answer"`
}

func (ReviewFormAnswer) TableName() string { return "review_form_answers" }
