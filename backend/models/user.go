package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type User struct {
	gorm.Model
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:100;not null"`
	LastName     string `gorm:"size:100;not null"`
	Role         string `gorm:"size:20;not null;default:student"` // student, teacher, admin
	IsActive     bool   `gorm:"default:true"`
	Bio          string
	Phone        string
	Website      string
	Avatar       string

	EmailVerified            bool `gorm:"default:false"`
	VerificationToken        *string
	VerificationTokenExpires *time.Time

	// Notification preferences, all opt-out
	EmailNotifications        bool `gorm:"default:true"`
	AssignmentReminders       bool `gorm:"default:true"`
	GradeNotifications        bool `gorm:"default:true"`
	AnnouncementNotifications bool `gorm:"default:true"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// WantsEmail reports whether an email for the given notification type may be
// sent to this user. The global switch gates everything; assignment, grade and
// announcement mails additionally require their category flag.
func (u *User) WantsEmail(notificationType string) bool {
	if !u.EmailNotifications {
		return false
	}
	switch notificationType {
	case NotificationTypeAssignment:
		return u.AssignmentReminders
	case NotificationTypeGrade:
		return u.GradeNotifications
	case NotificationTypeAnnouncement:
		return u.AnnouncementNotifications
	default:
		return true
	}
}
