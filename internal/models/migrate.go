package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables backing the file pipeline.
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&FileRecord{},
		&StorageQuota{},
		&AuditLog{},
	); err != nil {
		return err
	}

	log.Println("Database migrations completed")
	return nil
}
