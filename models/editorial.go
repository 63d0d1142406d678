package models

import "time"

// Editor assignment types. Section editors handle the submission directly,
// plain editors act as chief editors.
const (
	EditorTypeEditor        = "editor"
	EditorTypeSectionEditor = "section-editor"
)

// Revision request types.
const (
	RevisionMinor             = "minor_revisions"
	RevisionMajor             = "major_revisions"
	RevisionConditionalAccept = "conditional_accept"
)

// EditorAssignment links an editor to an article in one of the two roles.
type EditorAssignment struct {
	AssignmentID uint      `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	ArticleID    uint      `gorm:"column:article_id;index" json:"article_id"`
	EditorID     uint      `gorm:"column:editor_id" json:"editor_id"`
	EditorType   string    `gorm:"column:editor_type" json:"editor_type"`
	Assigned     time.Time `gorm:"column:assigned" json:"assigned"`

	Editor User `gorm:"foreignKey:EditorID" json:"editor,omitempty"`
}

func (EditorAssignment) TableName() string { return "editor_assignments" }

// DecisionDraft is a draft editorial decision authored by a section editor and
// reviewed by a (chief) editor. Either side may be unset.
type DecisionDraft struct {
	DraftID         uint      `gorm:"primaryKey;column:draft_id" json:"draft_id"`
	ArticleID       uint      `gorm:"column:article_id;index" json:"article_id"`
	SectionEditorID *uint     `gorm:"column:section_editor_id" json:"section_editor_id,omitempty"`
	EditorID        *uint     `gorm:"column:editor_id" json:"editor_id,omitempty"`
	Decision        string    `gorm:"column:decision" json:"decision"`
	CreateAt        time.Time `gorm:"column:create_at" json:"create_at"`

	SectionEditor *User `gorm:"foreignKey:SectionEditorID" json:"section_editor,omitempty"`
	Editor        *User `gorm:"foreignKey:EditorID" json:"editor,omitempty"`
}

func (DecisionDraft) TableName() string { return "decision_drafts" }

// RevisionRequest records an editor asking the author for revisions. The most
// recent request drives the decision value reported to RQC.
type RevisionRequest struct {
	RevisionID    uint      `gorm:"primaryKey;column:revision_id" json:"revision_id"`
	ArticleID     uint      `gorm:"column:article_id;index" json:"article_id"`
	EditorID      uint      `gorm:"column:editor_id" json:"editor_id"`
	Type          string    `gorm:"column:type" json:"type"`
	EditorNote    string    `gorm:"column:editor_note" json:"editor_note"`
	DateRequested time.Time `gorm:"column:date_requested" json:"date_requested"`
	DateDue       time.Time `gorm:"column:date_due" json:"date_due"`
}

func (RevisionRequest) TableName() string { return "revision_requests" }
