package realtime

import (
	"sync"
	"time"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
)

// MetricsCollector tracks live ingest throughput. Rates are keyed on
// created_at (ingest time), not the MACB timestamps, which are historical.
type MetricsCollector struct {
	db     *gorm.DB
	logger *pterm.Logger

	mu           sync.RWMutex
	ingestRate   float64 // entries per second over the last minute
	byteRate     float64 // bytes of file content per second
	hashedCount  int64
	totalEntries int64
	lastUpdate   time.Time
}

// IngestMetrics represents the current ingest statistics
type IngestMetrics struct {
	IngestRate   float64   `json:"ingest_rate"` // entries/sec
	ByteRate     float64   `json:"byte_rate"`   // bytes/sec
	HashedCount  int64     `json:"hashed_count"`
	TotalEntries int64     `json:"total_entries"`
	Timestamp    time.Time `json:"timestamp"`
}

// SourceMetrics represents ingest throughput for a single source
type SourceMetrics struct {
	SourceName string  `json:"source_name"`
	IngestRate float64 `json:"ingest_rate"` // entries/sec
	EntryCount int64   `json:"entry_count"`
}

// NewMetricsCollector creates a new ingest metrics collector
func NewMetricsCollector(db *gorm.DB, logger *pterm.Logger) *MetricsCollector {
	return &MetricsCollector{
		db:         db,
		logger:     logger,
		lastUpdate: time.Now(),
	}
}

// Start begins collecting metrics at regular intervals
func (m *MetricsCollector) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			m.collectMetrics()
		}
	}()
	m.logger.Info("Ingest metrics collector started",
		m.logger.Args("interval", interval.String()))
}

// collectMetrics gathers current statistics with a single aggregated query
func (m *MetricsCollector) collectMetrics() {
	now := time.Now()
	oneMinuteAgo := now.Add(-1 * time.Minute)

	type MetricsResult struct {
		RecentCount  int64 `gorm:"column:recent_count"`
		RecentBytes  int64 `gorm:"column:recent_bytes"`
		RecentHashed int64 `gorm:"column:recent_hashed"`
		TotalCount   int64 `gorm:"column:total_count"`
	}

	var result MetricsResult
	err := m.db.Table("timeline_entries").
		Select(`
			SUM(CASE WHEN created_at > ? THEN 1 ELSE 0 END) as recent_count,
			COALESCE(SUM(CASE WHEN created_at > ? THEN size ELSE 0 END), 0) as recent_bytes,
			SUM(CASE WHEN created_at > ? AND md5 != '0' AND md5 != '' THEN 1 ELSE 0 END) as recent_hashed,
			COUNT(*) as total_count
		`, oneMinuteAgo, oneMinuteAgo, oneMinuteAgo).
		Scan(&result).Error

	if err != nil {
		m.logger.Warn("Failed to collect ingest metrics", m.logger.Args("error", err))
		return
	}

	ingestRate := float64(result.RecentCount) / 60.0
	byteRate := float64(result.RecentBytes) / 60.0

	m.mu.Lock()
	m.ingestRate = ingestRate
	m.byteRate = byteRate
	m.hashedCount = result.RecentHashed
	m.totalEntries = result.TotalCount
	m.lastUpdate = now
	m.mu.Unlock()

	m.logger.Trace("Collected ingest metrics",
		m.logger.Args(
			"ingest_rate", ingestRate,
			"byte_rate", byteRate,
			"total_entries", result.TotalCount,
		))
}

// GetMetrics returns the current metrics snapshot
func (m *MetricsCollector) GetMetrics() *IngestMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &IngestMetrics{
		IngestRate:   m.ingestRate,
		ByteRate:     m.byteRate,
		HashedCount:  m.hashedCount,
		TotalEntries: m.totalEntries,
		Timestamp:    m.lastUpdate,
	}
}

// GetPerSourceMetrics returns ingest throughput broken down by source
func (m *MetricsCollector) GetPerSourceMetrics() []SourceMetrics {
	now := time.Now()
	oneMinuteAgo := now.Add(-1 * time.Minute)

	type SourceResult struct {
		SourceName  string `gorm:"column:source_name"`
		RecentCount int64  `gorm:"column:recent_count"`
		TotalCount  int64  `gorm:"column:total_count"`
	}

	var results []SourceResult
	err := m.db.Table("timeline_entries").
		Select(`
			source_name,
			SUM(CASE WHEN created_at > ? THEN 1 ELSE 0 END) as recent_count,
			COUNT(*) as total_count
		`, oneMinuteAgo).
		Group("source_name").
		Scan(&results).Error

	if err != nil {
		m.logger.Warn("Failed to collect per-source metrics", m.logger.Args("error", err))
		return []SourceMetrics{}
	}

	sourceMetrics := make([]SourceMetrics, 0, len(results))
	for _, result := range results {
		sourceMetrics = append(sourceMetrics, SourceMetrics{
			SourceName: result.SourceName,
			IngestRate: float64(result.RecentCount) / 60.0,
			EntryCount: result.TotalCount,
		})
	}

	return sourceMetrics
}
