package utils

import (
	"fmt"

	"infoclass/backend/config"
	"infoclass/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the postgres connection and migrates the schema.
// TranslateError makes unique-constraint violations surface as
// gorm.ErrDuplicatedKey so handlers can map them to conflicts.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := MigrateDB(db); err != nil {
		return nil, err
	}

	return db, nil
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseEnrollment{},
		&models.Assignment{},
		&models.AssignmentSubmission{},
		&models.Announcement{},
		&models.Comment{},
		&models.Message{},
		&models.Notification{},
		&models.FileAttachment{},
	)
}
