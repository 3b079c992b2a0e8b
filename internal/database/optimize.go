package database

import (
	"github.com/pterm/pterm"
	"gorm.io/gorm"
)

// OptimizeDatabase applies additional optimizations after initial migrations
// This includes creating performance indexes and verifying SQLite settings
func OptimizeDatabase(db *gorm.DB, logger *pterm.Logger) error {
	logger.Debug("Applying database optimizations...")

	// Verify WAL mode is enabled (debug level - only show if there's a problem)
	var journalMode string
	if err := db.Raw("PRAGMA journal_mode").Scan(&journalMode).Error; err != nil {
		logger.Warn("Failed to check journal mode", logger.Args("error", err))
	} else if journalMode != "wal" {
		logger.Warn("Database not in WAL mode", logger.Args("mode", journalMode))
	} else {
		logger.Trace("Database journal mode verified", logger.Args("mode", journalMode))
	}

	// Verify page size (trace level - not critical)
	var pageSize int
	if err := db.Raw("PRAGMA page_size").Scan(&pageSize).Error; err != nil {
		logger.Debug("Failed to check page size", logger.Args("error", err))
	} else {
		logger.Trace("Database page size", logger.Args("bytes", pageSize))
	}

	// Create all indexes in a single batch for faster execution
	// IF NOT EXISTS makes this idempotent and fast on subsequent runs
	indexes := []string{
		// ===== COMPOSITE INDEXES (for common query patterns) =====

		// Source + MACB clock (per-source timeline queries)
		`CREATE INDEX IF NOT EXISTS idx_source_mtime
		 ON timeline_entries(source_name, mtime)`,

		// UID + modification time (per-owner activity)
		`CREATE INDEX IF NOT EXISTS idx_uid_mtime
		 ON timeline_entries(uid, mtime)`,

		// Ingest order for recent-entries queries
		`CREATE INDEX IF NOT EXISTS idx_created_id
		 ON timeline_entries(created_at DESC, id DESC)`,

		// ===== PARTIAL INDEXES (for specific queries) =====

		// Entries with a computed hash only (hash lookups)
		`CREATE INDEX IF NOT EXISTS idx_hashed_md5
		 ON timeline_entries(md5)
		 WHERE md5 != '0' AND md5 != ''`,

		// Usable modification timestamps only (activity timeline excludes 0/-1)
		`CREATE INDEX IF NOT EXISTS idx_mtime_usable
		 ON timeline_entries(mtime, size)
		 WHERE mtime > 0`,

		// Large files report
		`CREATE INDEX IF NOT EXISTS idx_size_desc
		 ON timeline_entries(size DESC)
		 WHERE size > 0`,

		// ===== CLEANUP INDEX =====
		// Index for retention queries (created_at for deletion)
		`CREATE INDEX IF NOT EXISTS idx_created_cleanup
		 ON timeline_entries(created_at)`,
	}

	indexCount := 0
	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.Warn("Failed to create index", logger.Args("error", err))
			return err
		}
		indexCount++
	}

	logger.Debug("Performance indexes verified", logger.Args("count", indexCount))

	// Analyze tables for query optimizer (only log if it fails)
	if err := db.Exec("ANALYZE").Error; err != nil {
		logger.Warn("Failed to analyze database", logger.Args("error", err))
	} else {
		logger.Trace("Database statistics analyzed")
	}

	logger.Debug("Database optimizations completed")
	return nil
}
