package main

import (
	"crypto/sha256"
	"fmt"
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TimelineEntry minimal struct for hash recalculation
type TimelineEntry struct {
	ID         uint `gorm:"primaryKey"`
	SourceName string
	LineHash   string
	MD5        string `gorm:"column:md5"`
	Name       string
	Inode      string
	Mode       string
	UID        uint64 `gorm:"column:uid"`
	GID        uint64 `gorm:"column:gid"`
	Size       uint64
	Atime      int64
	Mtime      int64
	Ctime      int64
	Crtime     int64
}

func (TimelineEntry) TableName() string {
	return "timeline_entries"
}

// canonicalLine rebuilds the pipe-delimited serialization the ingest hash is
// keyed on.
func canonicalLine(e *TimelineEntry) string {
	return strings.Join([]string{
		e.MD5,
		e.Name,
		e.Inode,
		e.Mode,
		fmt.Sprintf("%d", e.UID),
		fmt.Sprintf("%d", e.GID),
		fmt.Sprintf("%d", e.Size),
		fmt.Sprintf("%d", e.Atime),
		fmt.Sprintf("%d", e.Mtime),
		fmt.Sprintf("%d", e.Ctime),
		fmt.Sprintf("%d", e.Crtime),
	}, "|")
}

func main() {
	dbPath := "./timelynx.db"

	fmt.Println("🔧 TimeLynx Database Hash Migration Tool")
	fmt.Println("=========================================")
	fmt.Printf("Database: %s\n\n", dbPath)

	// Open database
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Count total records
	var totalCount int64
	db.Model(&TimelineEntry{}).Count(&totalCount)
	fmt.Printf("📊 Found %d total records\n", totalCount)

	// Process in batches
	batchSize := 1000
	offset := 0
	totalUpdated := 0
	totalErrors := 0

	fmt.Println("\n🔄 Recalculating hashes...")

	for {
		var entries []TimelineEntry
		result := db.Limit(batchSize).Offset(offset).Find(&entries)

		if result.Error != nil {
			log.Fatalf("Failed to fetch records: %v", result.Error)
		}

		if len(entries) == 0 {
			break
		}

		// Recalculate hashes
		for i := range entries {
			entry := &entries[i]

			// Hash formula: source name and canonical line, NUL separated,
			// matching the ingestion processor
			hashInput := entry.SourceName + "\x00" + canonicalLine(entry)
			hash := sha256.Sum256([]byte(hashInput))
			newHash := fmt.Sprintf("%x", hash)

			// Update only if hash changed
			if newHash != entry.LineHash {
				entry.LineHash = newHash
				if err := db.Save(entry).Error; err != nil {
					fmt.Printf("❌ Error updating record ID %d: %v\n", entry.ID, err)
					totalErrors++
				} else {
					totalUpdated++
				}
			}
		}

		offset += batchSize
		fmt.Printf("   Processed %d / %d records (Updated: %d, Errors: %d)\r",
			offset, totalCount, totalUpdated, totalErrors)
	}

	fmt.Printf("\n\n✅ Migration completed!\n")
	fmt.Printf("   Total records: %d\n", totalCount)
	fmt.Printf("   Updated: %d\n", totalUpdated)
	fmt.Printf("   Errors: %d\n", totalErrors)
	fmt.Printf("   Unchanged: %d\n", totalCount-int64(totalUpdated)-int64(totalErrors))
}
