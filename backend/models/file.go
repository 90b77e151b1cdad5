package models

import "gorm.io/gorm"

// FileAttachment belongs to exactly one parent (submission, assignment or
// announcement) via the same tagged pair used by Comment, plus an uploader
// back-reference.
type FileAttachment struct {
	gorm.Model
	Filename         string `gorm:"size:255;not null"` // server-assigned stored name
	OriginalFilename string `gorm:"size:255;not null"`
	FilePath         string `gorm:"size:500;not null"`
	FileSize         int64  `gorm:"not null"`
	MimeType         string `gorm:"size:100;not null"`
	ParentKind       string `gorm:"size:20;not null;index:idx_file_parent"` // submission, assignment, announcement
	ParentID         uint   `gorm:"not null;index:idx_file_parent"`
	UploadedBy       uint   `gorm:"not null"`

	Uploader User `gorm:"foreignKey:UploadedBy"`
}
