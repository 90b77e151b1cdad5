package models

import "gorm.io/gorm"

// Message is a private point-to-point message, not tied to a course.
type Message struct {
	gorm.Model
	SenderID   uint   `gorm:"not null"`
	ReceiverID uint   `gorm:"not null"`
	Subject    string `gorm:"size:255"`
	Content    string `gorm:"not null"`
	IsRead     bool   `gorm:"default:false"`

	Sender   User `gorm:"foreignKey:SenderID"`
	Receiver User `gorm:"foreignKey:ReceiverID"`
}
