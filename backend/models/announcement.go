package models

import "gorm.io/gorm"

type Announcement struct {
	gorm.Model
	Title    string `gorm:"size:255;not null"`
	Content  string `gorm:"not null"`
	IsPinned bool   `gorm:"default:false"`
	CourseID uint   `gorm:"not null"`
	AuthorID uint   `gorm:"not null"`

	Course Course `gorm:"foreignKey:CourseID"`
	Author User   `gorm:"foreignKey:AuthorID"`
}

// Valid parent kinds for comments and file attachments.
const (
	ParentKindSubmission   = "submission"
	ParentKindAssignment   = "assignment"
	ParentKindAnnouncement = "announcement"
)

// Comment attaches to exactly one parent, identified by (ParentKind, ParentID).
// Modeling the parent as a tagged pair instead of three nullable foreign keys
// makes a zero- or multi-parent comment unrepresentable.
type Comment struct {
	gorm.Model
	Content    string `gorm:"not null"`
	AuthorID   uint   `gorm:"not null"`
	ParentKind string `gorm:"size:20;not null;index:idx_comment_parent"` // submission, assignment, announcement
	ParentID   uint   `gorm:"not null;index:idx_comment_parent"`

	Author User `gorm:"foreignKey:AuthorID"`
}
