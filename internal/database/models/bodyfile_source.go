package models

import (
	"time"
)

// BodyfileSource tracks one bodyfile on disk and the read position of its
// ingestion processor.
type BodyfileSource struct {
	Name            string `gorm:"primaryKey"`
	Path            string `gorm:"not null"`
	ParserType      string `gorm:"not null;index"`
	LastLineContent string
	LastPosition    int64 `gorm:"default:0"`
	LastInode       int64 `gorm:"default:0"` // File inode for identity tracking (SQLite only supports int64)
	LastReadAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (BodyfileSource) TableName() string {
	return "bodyfile_sources"
}
