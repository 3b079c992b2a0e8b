package models

import (
	"time"
)

// TimelineEntry is one parsed bodyfile record persisted for timeline queries.
// The bodyfile fields are stored exactly as the codec produced them so the
// canonical line can be regenerated from the row.
type TimelineEntry struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	SourceName string `gorm:"not null;index"`
	LineHash   string `gorm:"uniqueIndex:idx_line_hash;size:64"` // SHA256 of source + canonical line, for deduplication

	// Bodyfile text fields, verbatim
	MD5   string `gorm:"column:md5;index:idx_md5"`
	Name  string `gorm:"not null;index:idx_name"`
	Inode string
	Mode  string

	// Bodyfile numeric fields
	UID  uint64 `gorm:"column:uid;index:idx_uid"`
	GID  uint64 `gorm:"column:gid"`
	Size uint64 `gorm:"index:idx_size"`

	// MACB timestamps, UNIX epoch seconds; -1 = unknown
	Atime  int64 `gorm:"index:idx_atime"`
	Mtime  int64 `gorm:"index:idx_mtime"`
	Ctime  int64 `gorm:"index:idx_ctime"`
	Crtime int64 `gorm:"index:idx_crtime"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_created_at"`

	// Foreign key
	Source BodyfileSource `gorm:"foreignKey:SourceName;references:Name"`
}

func (TimelineEntry) TableName() string {
	return "timeline_entries"
}
