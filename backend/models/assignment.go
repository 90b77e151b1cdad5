package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SubmissionStatusDraft     = "draft"
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusGraded    = "graded"
	SubmissionStatusLate      = "late"
)

type Assignment struct {
	gorm.Model
	Title                string    `gorm:"size:255;not null"`
	Description          string
	DueDate              time.Time `gorm:"not null"`
	MaxPoints            float64   `gorm:"type:numeric(5,2);not null;default:100"`
	AllowLateSubmissions bool      `gorm:"default:true"`
	IsArchived           bool      `gorm:"default:false"`
	CourseID             uint      `gorm:"not null"`

	Course      Course                 `gorm:"foreignKey:CourseID"`
	Submissions []AssignmentSubmission `gorm:"constraint:OnDelete:CASCADE"`
}

// AssignmentSubmission holds one row per (student, assignment); resubmitting
// updates the row in place.
type AssignmentSubmission struct {
	gorm.Model
	StudentID    uint `gorm:"not null;uniqueIndex:idx_student_assignment"`
	AssignmentID uint `gorm:"not null;uniqueIndex:idx_student_assignment"`
	Content      string
	Status       string `gorm:"size:20;default:draft"` // draft, submitted, graded, late
	SubmittedAt  *time.Time
	PointsEarned *float64 `gorm:"type:numeric(5,2)"`
	Feedback     string
	GradedBy     *uint
	GradedAt     *time.Time

	Student    User       `gorm:"foreignKey:StudentID"`
	Assignment Assignment `gorm:"foreignKey:AssignmentID"`
}

// SubmittedStatus returns the status a submission gets at submission time:
// late iff it lands strictly after the assignment's due date.
func SubmittedStatus(submittedAt, dueDate time.Time) string {
	if submittedAt.After(dueDate) {
		return SubmissionStatusLate
	}
	return SubmissionStatusSubmitted
}
