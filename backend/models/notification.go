package models

import "gorm.io/gorm"

const (
	NotificationTypeAssignment   = "assignment"
	NotificationTypeGrade        = "grade"
	NotificationTypeAnnouncement = "announcement"
	NotificationTypeMessage      = "message"
	NotificationTypeEnrollment   = "enrollment"
)

// Notification is a persisted in-app notification for a single user. Rows are
// created only by the fan-out engine and mutated only to flip IsRead.
type Notification struct {
	gorm.Model
	UserID    uint   `gorm:"not null;index"`
	Type      string `gorm:"size:20;not null"` // assignment, grade, announcement, message, enrollment
	Title     string `gorm:"size:255;not null"`
	Message   string
	IsRead    bool  `gorm:"default:false"`
	RelatedID *uint // id of the triggering entity, interpreted via Type

	User User `gorm:"foreignKey:UserID"`
}
