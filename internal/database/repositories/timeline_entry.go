package repositories

import (
	"fmt"

	"timelynx/internal/database/models"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dedupOnLineHash drops rows that collide with an already ingested line
// instead of failing the insert. A re-exported bodyfile or a rotation reset
// replays lines the service has already stored; the hash index makes those
// replays no-ops so the reader position can keep advancing.
var dedupOnLineHash = clause.OnConflict{
	Columns:   []clause.Column{{Name: "line_hash"}},
	DoNothing: true,
}

// timestampColumns maps the MACB clock names accepted by queries to their
// table columns. Queries over any other name are rejected before touching SQL.
var timestampColumns = map[string]string{
	"atime":  "atime",
	"mtime":  "mtime",
	"ctime":  "ctime",
	"crtime": "crtime",
}

// TimestampColumn resolves a MACB clock name to its column, defaulting to
// mtime for an empty name.
func TimestampColumn(clock string) (string, error) {
	if clock == "" {
		return "mtime", nil
	}
	col, ok := timestampColumns[clock]
	if !ok {
		return "", fmt.Errorf("unknown timestamp clock: %q", clock)
	}
	return col, nil
}

// TimelineEntryRepository handles CRUD operations for timeline entries
type TimelineEntryRepository interface {
	Create(entry *models.TimelineEntry) error
	CreateBatch(entries []*models.TimelineEntry) error
	FindByID(id uint) (*models.TimelineEntry, error)
	FindRecent(limit int, offset int, sourceName string) ([]*models.TimelineEntry, error)
	FindByTimeRange(clock string, start, end int64, limit int) ([]*models.TimelineEntry, error)
	Count() (int64, error)
	CountBySourceName(sourceName string) (int64, error)
}

type timelineEntryRepo struct {
	db     *gorm.DB
	logger *pterm.Logger
}

// NewTimelineEntryRepository creates a new timeline entry repository
func NewTimelineEntryRepository(db *gorm.DB, logger *pterm.Logger) TimelineEntryRepository {
	return &timelineEntryRepo{
		db:     db,
		logger: logger,
	}
}

// Create inserts a single timeline entry
func (r *timelineEntryRepo) Create(entry *models.TimelineEntry) error {
	if err := r.db.Clauses(dedupOnLineHash).Create(entry).Error; err != nil {
		r.logger.WithCaller().Error("Failed to create timeline entry", r.logger.Args("error", err))
		return err
	}
	r.logger.Trace("Created timeline entry", r.logger.Args("id", entry.ID, "source", entry.SourceName))
	return nil
}

// CreateBatch inserts multiple timeline entries in a single transaction.
// Large batches are split to stay under the SQLite variable limit (32766).
func (r *timelineEntryRepo) CreateBatch(entries []*models.TimelineEntry) error {
	if len(entries) == 0 {
		r.logger.Debug("Empty batch, skipping insert")
		return nil
	}

	// TimelineEntry has ~16 columns, so max safe batch size is ~2000 records
	const MaxSQLiteVariables = 32766
	const ColumnsPerRecord = 16
	const MaxRecordsPerBatch = MaxSQLiteVariables / ColumnsPerRecord

	if len(entries) <= MaxRecordsPerBatch {
		return r.insertSubBatch(entries)
	}

	r.logger.Debug("Splitting large batch to avoid variable limit",
		r.logger.Args("total_records", len(entries), "max_per_batch", MaxRecordsPerBatch))

	totalInserted := 0
	for i := 0; i < len(entries); i += MaxRecordsPerBatch {
		end := i + MaxRecordsPerBatch
		if end > len(entries) {
			end = len(entries)
		}

		subBatch := entries[i:end]
		if err := r.insertSubBatch(subBatch); err != nil {
			r.logger.WithCaller().Error("Failed to insert sub-batch",
				r.logger.Args("batch_num", (i/MaxRecordsPerBatch)+1, "count", len(subBatch), "error", err))
			return err
		}

		totalInserted += len(subBatch)
		r.logger.Trace("Inserted sub-batch",
			r.logger.Args("progress", totalInserted, "total", len(entries)))
	}

	r.logger.Debug("Successfully inserted large batch in chunks",
		r.logger.Args("total_records", len(entries), "source", entries[0].SourceName))

	return nil
}

// insertSubBatch performs the actual batch insert within SQLite variable limits
func (r *timelineEntryRepo) insertSubBatch(entries []*models.TimelineEntry) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		r.logger.WithCaller().Error("Failed to begin transaction", r.logger.Args("error", tx.Error))
		return tx.Error
	}

	if err := tx.Clauses(dedupOnLineHash).Create(&entries).Error; err != nil {
		tx.Rollback()
		r.logger.WithCaller().Error("Failed to insert batch",
			r.logger.Args("count", len(entries), "error", err))
		return err
	}

	if err := tx.Commit().Error; err != nil {
		r.logger.WithCaller().Error("Failed to commit transaction", r.logger.Args("error", err))
		return err
	}

	return nil
}

// FindByID retrieves a timeline entry by ID
func (r *timelineEntryRepo) FindByID(id uint) (*models.TimelineEntry, error) {
	var entry models.TimelineEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			r.logger.Trace("Timeline entry not found", r.logger.Args("id", id))
			return nil, err
		}
		r.logger.WithCaller().Error("Failed to find timeline entry", r.logger.Args("id", id, "error", err))
		return nil, err
	}
	return &entry, nil
}

// FindRecent retrieves the most recently ingested entries, optionally
// restricted to one source.
func (r *timelineEntryRepo) FindRecent(limit int, offset int, sourceName string) ([]*models.TimelineEntry, error) {
	var entries []*models.TimelineEntry
	query := r.db.Order("created_at DESC, id DESC")

	if sourceName != "" {
		query = query.Where("source_name = ?", sourceName)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		r.logger.WithCaller().Error("Failed to find recent entries", r.logger.Args("error", err))
		return nil, err
	}

	r.logger.Trace("Found recent entries",
		r.logger.Args("count", len(entries), "limit", limit, "offset", offset, "source", sourceName))
	return entries, nil
}

// FindByTimeRange retrieves entries whose chosen MACB timestamp falls inside
// [start, end], ordered by that timestamp. Unknown timestamps (-1) and unset
// ones (0) never match a positive range.
func (r *timelineEntryRepo) FindByTimeRange(clock string, start, end int64, limit int) ([]*models.TimelineEntry, error) {
	col, err := TimestampColumn(clock)
	if err != nil {
		return nil, err
	}

	var entries []*models.TimelineEntry
	query := r.db.Where(col+" BETWEEN ? AND ?", start, end).Order(col + " ASC, id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&entries).Error; err != nil {
		r.logger.WithCaller().Error("Failed to find entries by time range",
			r.logger.Args("clock", col, "start", start, "end", end, "error", err))
		return nil, err
	}

	r.logger.Trace("Found entries by time range",
		r.logger.Args("count", len(entries), "clock", col, "start", start, "end", end))
	return entries, nil
}

// Count returns the total number of timeline entries
func (r *timelineEntryRepo) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.TimelineEntry{}).Count(&count).Error; err != nil {
		r.logger.WithCaller().Error("Failed to count timeline entries", r.logger.Args("error", err))
		return 0, err
	}
	return count, nil
}

// CountBySourceName returns the number of entries for a specific source
func (r *timelineEntryRepo) CountBySourceName(sourceName string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.TimelineEntry{}).
		Where("source_name = ?", sourceName).
		Count(&count).Error; err != nil {
		r.logger.WithCaller().Error("Failed to count entries by source",
			r.logger.Args("source", sourceName, "error", err))
		return 0, err
	}
	return count, nil
}
