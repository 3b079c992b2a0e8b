package database

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"timelynx/internal/database/models"

	"github.com/glebarez/sqlite"
	"github.com/pterm/pterm"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openCleanupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "cleanup.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func newTestCleanupService(t *testing.T, db *gorm.DB, retentionDays int) *CleanupService {
	t.Helper()
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn)
	return NewCleanupService(db, logger, retentionDays, time.Hour, "02:00", false, nil)
}

func TestCleanupService_GetStatsReportsRetentionState(t *testing.T) {
	db := openCleanupTestDB(t)

	svc := newTestCleanupService(t, db, 30)
	stats := svc.GetStats()

	if !stats.Enabled {
		t.Error("Expected cleanup to be enabled with a positive retention")
	}
	if stats.RetentionDays != 30 {
		t.Errorf("Expected retention of 30 days, got %d", stats.RetentionDays)
	}
	if stats.NextScheduledRun.IsZero() {
		t.Error("Expected a next scheduled run when retention is enabled")
	}
	if !stats.NextScheduledRun.After(time.Now()) {
		t.Errorf("Next scheduled run should be in the future, got %v", stats.NextScheduledRun)
	}
	if !stats.LastRunTime.IsZero() {
		t.Errorf("Expected no last run before the first cleanup, got %v", stats.LastRunTime)
	}

	disabled := newTestCleanupService(t, db, 0)
	stats = disabled.GetStats()
	if stats.Enabled {
		t.Error("Expected cleanup to be disabled with retention 0")
	}
	if !stats.NextScheduledRun.IsZero() {
		t.Errorf("Disabled cleanup should not schedule a run, got %v", stats.NextScheduledRun)
	}
}

func TestCleanupService_RunCleanupUpdatesStats(t *testing.T) {
	db := openCleanupTestDB(t)
	svc := newTestCleanupService(t, db, 30)

	old := time.Now().AddDate(0, 0, -60)
	fresh := time.Now()
	for i := 0; i < 5; i++ {
		entry := &models.TimelineEntry{
			SourceName: "bodyfile-test",
			LineHash:   fmt.Sprintf("%064d", i),
			MD5:        "0",
			Name:       fmt.Sprintf("/files/file-%d", i),
			Mode:       "r/rrw-r--r--",
			Mtime:      1577092511,
		}
		if err := db.Create(entry).Error; err != nil {
			t.Fatalf("Failed to seed entry: %v", err)
		}
		createdAt := fresh
		if i < 3 {
			createdAt = old
		}
		if err := db.Model(entry).Update("created_at", createdAt).Error; err != nil {
			t.Fatalf("Failed to age entry: %v", err)
		}
	}

	svc.runCleanup()

	stats := svc.GetStats()
	if stats.EntriesDeleted != 3 {
		t.Errorf("Expected 3 aged entries deleted, got %d", stats.EntriesDeleted)
	}
	if stats.LastRunTime.IsZero() {
		t.Error("Expected last run time to be recorded")
	}

	var remaining int64
	if err := db.Model(&models.TimelineEntry{}).Count(&remaining).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if remaining != 2 {
		t.Errorf("Expected 2 recent entries to survive, got %d", remaining)
	}
}
