package repositories

import (
	"context"
	"time"

	"timelynx/internal/database/models"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
)

const (
	// DefaultQueryTimeout is the default timeout for analytics queries (30 seconds)
	DefaultQueryTimeout = 30 * time.Second
)

// StatsRepository provides aggregate statistics over the ingested timeline.
// Methods taking a clock parameter accept the MACB clock names resolved by
// TimestampColumn ("atime", "mtime", "ctime", "crtime"; "" = mtime).
type StatsRepository interface {
	GetSummary(clock string) (*TimelineSummary, error)
	GetActivityTimeline(clock string, days int) ([]*ActivityBucket, error)
	GetTopUIDs(limit int) ([]*UIDStats, error)
	GetTopDirectories(limit int) ([]*DirectoryStats, error)
	GetTopExtensions(limit int) ([]*ExtensionStats, error)
	GetModeDistribution() ([]*ModeTypeStats, error)
	GetSizeDistribution() ([]*SizeBucketStats, error)
	GetHashCoverage() (*HashCoverage, error)
	GetLargestEntries(limit int) ([]*LargestEntry, error)
	GetProcessingStats() ([]*ProcessingStats, error)
}

type statsRepo struct {
	db     *gorm.DB
	logger *pterm.Logger
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *gorm.DB, logger *pterm.Logger) StatsRepository {
	return &statsRepo{
		db:     db,
		logger: logger,
	}
}

func (r *statsRepo) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultQueryTimeout)
}

// TimelineSummary is the headline view over everything ingested so far.
type TimelineSummary struct {
	TotalEntries      int64   `json:"total_entries"`
	SourceCount       int64   `json:"source_count"`
	UniqueNames       int64   `json:"unique_names"`
	HashedEntries     int64   `json:"hashed_entries"`
	UnhashedEntries   int64   `json:"unhashed_entries"`
	NoTimestampCount  int64   `json:"no_timestamp_count"`
	TotalBytes        int64   `json:"total_bytes"`
	EarliestActivity  int64   `json:"earliest_activity"` // epoch seconds on the queried clock, 0 if none
	LatestActivity    int64   `json:"latest_activity"`
	AvgEntrySize      float64 `json:"avg_entry_size"`
}

// ActivityBucket is one time bucket of filesystem activity on a MACB clock.
type ActivityBucket struct {
	Bucket  string `json:"bucket" gorm:"column:bucket"`
	Entries int64  `json:"entries" gorm:"column:entries"`
	Bytes   int64  `json:"bytes" gorm:"column:bytes"`
}

// UIDStats aggregates entries per owning user id.
type UIDStats struct {
	UID     uint64 `json:"uid" gorm:"column:uid"`
	Entries int64  `json:"entries" gorm:"column:entries"`
	Bytes   int64  `json:"bytes" gorm:"column:bytes"`
}

// DirectoryStats aggregates entries per parent directory.
type DirectoryStats struct {
	Directory string `json:"directory" gorm:"column:directory"`
	Entries   int64  `json:"entries" gorm:"column:entries"`
	Bytes     int64  `json:"bytes" gorm:"column:bytes"`
}

// ExtensionStats aggregates entries per file extension.
type ExtensionStats struct {
	Extension string `json:"extension" gorm:"column:extension"`
	Entries   int64  `json:"entries" gorm:"column:entries"`
	Bytes     int64  `json:"bytes" gorm:"column:bytes"`
}

// ModeTypeStats aggregates entries per file-type character of the mode string
// (the leading character of mode_as_string, e.g. 'd' or 'r').
type ModeTypeStats struct {
	ModeType string `json:"mode_type" gorm:"column:mode_type"`
	Entries  int64  `json:"entries" gorm:"column:entries"`
}

// SizeBucketStats counts entries per size range.
type SizeBucketStats struct {
	Bucket  string `json:"bucket" gorm:"column:bucket"`
	Entries int64  `json:"entries" gorm:"column:entries"`
	Bytes   int64  `json:"bytes" gorm:"column:bytes"`
}

// HashCoverage reports how many entries carry a computed MD5 versus the "0"
// placeholder.
type HashCoverage struct {
	Hashed   int64   `json:"hashed"`
	Unhashed int64   `json:"unhashed"`
	Coverage float64 `json:"coverage_percent"`
}

// LargestEntry is one row of the largest-files report.
type LargestEntry struct {
	Name  string `json:"name" gorm:"column:name"`
	Size  uint64 `json:"size" gorm:"column:size"`
	Mtime int64  `json:"mtime" gorm:"column:mtime"`
	MD5   string `json:"md5" gorm:"column:md5"`
}

// ProcessingStats shows per-source ingestion progress.
type ProcessingStats struct {
	SourceName   string     `json:"source_name" gorm:"column:source_name"`
	Path         string     `json:"path" gorm:"column:path"`
	Entries      int64      `json:"entries" gorm:"column:entries"`
	LastPosition int64      `json:"last_position" gorm:"column:last_position"`
	LastReadAt   *time.Time `json:"last_read_at" gorm:"column:last_read_at"`
}

// GetSummary returns headline statistics in a single aggregated query plus a
// cheap source count. The earliest/latest activity range follows the chosen
// MACB clock; the no-timestamp count always spans all four.
func (r *statsRepo) GetSummary(clock string) (*TimelineSummary, error) {
	col, err := TimestampColumn(clock)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout()
	defer cancel()

	type aggregatedResult struct {
		TotalEntries     int64   `gorm:"column:total_entries"`
		UniqueNames      int64   `gorm:"column:unique_names"`
		HashedEntries    int64   `gorm:"column:hashed_entries"`
		UnhashedEntries  int64   `gorm:"column:unhashed_entries"`
		NoTimestampCount int64   `gorm:"column:no_timestamp_count"`
		TotalBytes       int64   `gorm:"column:total_bytes"`
		EarliestActivity int64   `gorm:"column:earliest_activity"`
		LatestActivity   int64   `gorm:"column:latest_activity"`
		AvgEntrySize     float64 `gorm:"column:avg_entry_size"`
	}

	var result aggregatedResult
	err = r.db.WithContext(ctx).Table("timeline_entries").
		Select(`
			COUNT(*) as total_entries,
			COUNT(DISTINCT name) as unique_names,
			COUNT(CASE WHEN md5 != '0' AND md5 != '' THEN 1 END) as hashed_entries,
			COUNT(CASE WHEN md5 = '0' OR md5 = '' THEN 1 END) as unhashed_entries,
			COUNT(CASE WHEN atime <= 0 AND mtime <= 0 AND ctime <= 0 AND crtime <= 0 THEN 1 END) as no_timestamp_count,
			COALESCE(SUM(size), 0) as total_bytes,
			COALESCE(MIN(CASE WHEN ` + col + ` > 0 THEN ` + col + ` END), 0) as earliest_activity,
			COALESCE(MAX(CASE WHEN ` + col + ` > 0 THEN ` + col + ` END), 0) as latest_activity,
			COALESCE(AVG(size), 0) as avg_entry_size
		`).
		Scan(&result).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get summary stats", r.logger.Args("error", err))
		return nil, err
	}

	var sourceCount int64
	if err := r.db.WithContext(ctx).Model(&models.BodyfileSource{}).Count(&sourceCount).Error; err != nil {
		r.logger.WithCaller().Error("Failed to count sources", r.logger.Args("error", err))
		return nil, err
	}

	summary := &TimelineSummary{
		TotalEntries:     result.TotalEntries,
		SourceCount:      sourceCount,
		UniqueNames:      result.UniqueNames,
		HashedEntries:    result.HashedEntries,
		UnhashedEntries:  result.UnhashedEntries,
		NoTimestampCount: result.NoTimestampCount,
		TotalBytes:       result.TotalBytes,
		EarliestActivity: result.EarliestActivity,
		LatestActivity:   result.LatestActivity,
		AvgEntrySize:     result.AvgEntrySize,
	}

	r.logger.Trace("Generated timeline summary", r.logger.Args("total_entries", summary.TotalEntries))
	return summary, nil
}

// GetActivityTimeline buckets filesystem activity on the chosen MACB clock
// with adaptive granularity: hourly up to 2 days, daily up to 90 days,
// weekly beyond.
func (r *statsRepo) GetActivityTimeline(clock string, days int) ([]*ActivityBucket, error) {
	col, err := TimestampColumn(clock)
	if err != nil {
		return nil, err
	}

	if days <= 0 {
		days = 30
	}

	var bucketExpr string
	switch {
	case days <= 2:
		bucketExpr = "strftime('%Y-%m-%d %H:00', datetime(" + col + ", 'unixepoch'))"
	case days <= 90:
		bucketExpr = "strftime('%Y-%m-%d', datetime(" + col + ", 'unixepoch'))"
	default:
		bucketExpr = "strftime('%Y-W%W', datetime(" + col + ", 'unixepoch'))"
	}

	since := time.Now().AddDate(0, 0, -days).Unix()

	var timeline []*ActivityBucket
	err = r.db.Model(&models.TimelineEntry{}).
		Select(bucketExpr+" as bucket, COUNT(*) as entries, COALESCE(SUM(size), 0) as bytes").
		Where(col+" > ?", since).
		Group(bucketExpr).
		Order("bucket").
		Scan(&timeline).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get activity timeline",
			r.logger.Args("clock", col, "days", days, "error", err))
		return nil, err
	}

	r.logger.Trace("Generated activity timeline",
		r.logger.Args("clock", col, "days", days, "data_points", len(timeline)))
	return timeline, nil
}

// GetTopUIDs returns the user ids owning the most entries
func (r *statsRepo) GetTopUIDs(limit int) ([]*UIDStats, error) {
	if limit <= 0 {
		limit = 10
	}

	var stats []*UIDStats
	err := r.db.Model(&models.TimelineEntry{}).
		Select("uid, COUNT(*) as entries, COALESCE(SUM(size), 0) as bytes").
		Group("uid").
		Order("entries DESC").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get top UIDs", r.logger.Args("error", err))
		return nil, err
	}

	return stats, nil
}

// GetTopDirectories returns the parent directories holding the most entries.
// The directory is the path up to and including the last '/'; names without a
// separator land in the '' bucket.
func (r *statsRepo) GetTopDirectories(limit int) ([]*DirectoryStats, error) {
	if limit <= 0 {
		limit = 10
	}

	// rtrim(name, replace(name, '/', '')) strips everything after the last
	// slash: replace() yields the set of non-slash characters in the name, so
	// rtrim eats from the right until it hits a '/'.
	const dirExpr = "rtrim(name, replace(name, '/', ''))"

	var stats []*DirectoryStats
	err := r.db.Model(&models.TimelineEntry{}).
		Select(dirExpr+" as directory, COUNT(*) as entries, COALESCE(SUM(size), 0) as bytes").
		Group(dirExpr).
		Order("entries DESC").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get top directories", r.logger.Args("error", err))
		return nil, err
	}

	return stats, nil
}

// GetTopExtensions returns the most frequent file extensions. Names without a
// dot are excluded.
func (r *statsRepo) GetTopExtensions(limit int) ([]*ExtensionStats, error) {
	if limit <= 0 {
		limit = 10
	}

	// Same rtrim trick keyed on '.': the inner expression is the name up to
	// and including the last dot, replace() drops that prefix leaving the
	// extension.
	const extExpr = "lower(replace(name, rtrim(name, replace(name, '.', '')), ''))"

	var stats []*ExtensionStats
	err := r.db.Model(&models.TimelineEntry{}).
		Select(extExpr+" as extension, COUNT(*) as entries, COALESCE(SUM(size), 0) as bytes").
		Where("name LIKE '%.%'").
		Group(extExpr).
		Order("entries DESC").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get top extensions", r.logger.Args("error", err))
		return nil, err
	}

	return stats, nil
}

// GetModeDistribution groups entries by the file-type character of the mode
// string. Entries with an empty mode land in the "" bucket.
func (r *statsRepo) GetModeDistribution() ([]*ModeTypeStats, error) {
	var stats []*ModeTypeStats
	err := r.db.Model(&models.TimelineEntry{}).
		Select("substr(mode, 1, 1) as mode_type, COUNT(*) as entries").
		Group("substr(mode, 1, 1)").
		Order("entries DESC").
		Scan(&stats).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get mode distribution", r.logger.Args("error", err))
		return nil, err
	}

	return stats, nil
}

// GetSizeDistribution counts entries per size range
func (r *statsRepo) GetSizeDistribution() ([]*SizeBucketStats, error) {
	var stats []*SizeBucketStats
	err := r.db.Model(&models.TimelineEntry{}).
		Select(`CASE
			WHEN size = 0 THEN 'empty'
			WHEN size < 1024 THEN '<1KB'
			WHEN size < 1048576 THEN '<1MB'
			WHEN size < 104857600 THEN '<100MB'
			WHEN size < 1073741824 THEN '<1GB'
			ELSE '>=1GB'
		END as bucket, COUNT(*) as entries, COALESCE(SUM(size), 0) as bytes`).
		Group("bucket").
		Order("bytes DESC").
		Scan(&stats).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get size distribution", r.logger.Args("error", err))
		return nil, err
	}

	return stats, nil
}

// GetHashCoverage reports computed-MD5 coverage across all entries
func (r *statsRepo) GetHashCoverage() (*HashCoverage, error) {
	type coverageResult struct {
		Hashed   int64 `gorm:"column:hashed"`
		Unhashed int64 `gorm:"column:unhashed"`
	}

	var result coverageResult
	err := r.db.Table("timeline_entries").
		Select(`
			COUNT(CASE WHEN md5 != '0' AND md5 != '' THEN 1 END) as hashed,
			COUNT(CASE WHEN md5 = '0' OR md5 = '' THEN 1 END) as unhashed
		`).
		Scan(&result).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get hash coverage", r.logger.Args("error", err))
		return nil, err
	}

	coverage := &HashCoverage{
		Hashed:   result.Hashed,
		Unhashed: result.Unhashed,
	}
	if total := result.Hashed + result.Unhashed; total > 0 {
		coverage.Coverage = float64(result.Hashed) / float64(total) * 100
	}

	return coverage, nil
}

// GetLargestEntries returns the biggest files on the timeline
func (r *statsRepo) GetLargestEntries(limit int) ([]*LargestEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	var entries []*LargestEntry
	err := r.db.Model(&models.TimelineEntry{}).
		Select("name, size, mtime, md5").
		Order("size DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get largest entries", r.logger.Args("error", err))
		return nil, err
	}

	return entries, nil
}

// GetProcessingStats reports per-source ingestion progress by joining the
// source tracking table with entry counts.
func (r *statsRepo) GetProcessingStats() ([]*ProcessingStats, error) {
	var stats []*ProcessingStats
	err := r.db.Table("bodyfile_sources s").
		Select(`s.name as source_name, s.path as path, s.last_position as last_position, s.last_read_at as last_read_at,
			(SELECT COUNT(*) FROM timeline_entries e WHERE e.source_name = s.name) as entries`).
		Scan(&stats).Error
	if err != nil {
		r.logger.WithCaller().Error("Failed to get processing stats", r.logger.Args("error", err))
		return nil, err
	}

	return stats, nil
}
