package database

import (
	"timelynx/internal/database/models"

	"gorm.io/gorm"
)

// RunMigrations creates or updates the schema for all models
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.BodyfileSource{},
		&models.TimelineEntry{},
	)
}
