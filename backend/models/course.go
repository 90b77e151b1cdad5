package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Name        string `gorm:"size:255;not null"`
	Description string
	Section     string `gorm:"size:50"`
	Subject     string `gorm:"size:100"`
	Room        string `gorm:"size:50"`
	AccessCode  string `gorm:"size:10;unique;not null"`
	TeacherID   uint   `gorm:"not null"`
	IsActive    bool   `gorm:"default:true"`

	Teacher       User               `gorm:"foreignKey:TeacherID"`
	Enrollments   []CourseEnrollment `gorm:"constraint:OnDelete:CASCADE"`
	Assignments   []Assignment       `gorm:"constraint:OnDelete:CASCADE"`
	Announcements []Announcement     `gorm:"constraint:OnDelete:CASCADE"`
}

// CourseEnrollment links a student to a course. The composite unique index is
// the authority for "a student joins a course at most once"; handler pre-checks
// only exist for the friendlier error message.
type CourseEnrollment struct {
	gorm.Model
	StudentID uint `gorm:"not null;uniqueIndex:idx_student_course"`
	CourseID  uint `gorm:"not null;uniqueIndex:idx_student_course"`

	Student User   `gorm:"foreignKey:StudentID"`
	Course  Course `gorm:"foreignKey:CourseID"`
}
