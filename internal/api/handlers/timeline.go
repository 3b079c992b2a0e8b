package handlers

import (
	"net/http"
	"strconv"

	"timelynx/internal/database/repositories"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// TimelineHandler handles timeline statistics and entry queries
type TimelineHandler struct {
	statsRepo  repositories.StatsRepository
	entryRepo  repositories.TimelineEntryRepository
	sourceRepo repositories.BodyfileSourceRepository
	logger     *pterm.Logger
}

// NewTimelineHandler creates a new timeline handler
func NewTimelineHandler(
	statsRepo repositories.StatsRepository,
	entryRepo repositories.TimelineEntryRepository,
	sourceRepo repositories.BodyfileSourceRepository,
	logger *pterm.Logger,
) *TimelineHandler {
	return &TimelineHandler{
		statsRepo:  statsRepo,
		entryRepo:  entryRepo,
		sourceRepo: sourceRepo,
		logger:     logger,
	}
}

// getClock extracts the clock query parameter. The clock selects which MACB
// timestamp column a time-based query runs against; default is mtime.
func (h *TimelineHandler) getClock(c *gin.Context) (string, bool) {
	clock := c.DefaultQuery("clock", "mtime")
	if _, err := repositories.TimestampColumn(clock); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid clock, expected one of: atime, mtime, ctime, crtime",
		})
		return "", false
	}
	return clock, true
}

// getLimit extracts a bounded limit query parameter
func (h *TimelineHandler) getLimit(c *gin.Context, def, max int) int {
	limit := def
	if limitParam := c.Query("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 && l <= max {
			limit = l
		}
	}
	return limit
}

// GetSummary returns summary statistics for the whole timeline
func (h *TimelineHandler) GetSummary(c *gin.Context) {
	clock, ok := h.getClock(c)
	if !ok {
		return
	}

	summary, err := h.statsRepo.GetSummary(clock)
	if err != nil {
		h.logger.WithCaller().Error("Failed to get summary", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetActivityTimeline returns bucketed activity counts over a time window
func (h *TimelineHandler) GetActivityTimeline(c *gin.Context) {
	clock, ok := h.getClock(c)
	if !ok {
		return
	}

	days := 7
	if daysParam := c.Query("days"); daysParam != "" {
		if d, err := strconv.Atoi(daysParam); err == nil && d > 0 && d <= 3650 {
			days = d
		}
	}

	buckets, err := h.statsRepo.GetActivityTimeline(clock, days)
	if err != nil {
		h.logger.WithCaller().Error("Failed to get activity timeline",
			h.logger.Args("clock", clock, "days", days, "error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get activity timeline"})
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// GetTopUIDs returns the UIDs owning the most entries
func (h *TimelineHandler) GetTopUIDs(c *gin.Context) {
	limit := h.getLimit(c, 10, 100)

	stats, err := h.statsRepo.GetTopUIDs(limit)
	if err != nil {
		h.logger.WithCaller().Error("Failed to get top UIDs", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get top UIDs"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetTopDirectories returns the parent directories with the most entries
func (h *TimelineHandler) GetTopDirectories(c *gin.Context) {
	limit := h.getLimit(c, 10, 100)

	stats, err := h.statsRepo.GetTopDirectories(limit)
	if err != nil {
		h.logger.WithCaller().Error("Failed to get top directories", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get top directories"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetTopExtensions returns the most frequent file extensions
func (h *TimelineHandler) GetTopExtensions(c *gin.Context) {
	limit := h.getLimit(c, 10, 100)

	stats, err := h.statsRepo.GetTopExtensions(limit)
	if err != nil {
		h.logger.WithCaller().Error("Failed to get top extensions", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get top extensions"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetModeDistribution returns entry counts grouped by file type character
func (h *TimelineHandler) GetModeDistribution(c *gin.Context) {
	stats, err := h.statsRepo.GetModeDistribution()
	if err != nil {
		h.logger.WithCaller().Error("Failed to get mode distribution", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get mode distribution"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetSizeDistribution returns entry counts grouped by size bucket
func (h *TimelineHandler) GetSizeDistribution(c *gin.Context) {
	stats, err := h.statsRepo.GetSizeDistribution()
	if err != nil {
		h.logger.WithCaller().Error("Failed to get size distribution", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get size distribution"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetHashCoverage returns the share of entries carrying a real MD5
func (h *TimelineHandler) GetHashCoverage(c *gin.Context) {
	coverage, err := h.statsRepo.GetHashCoverage()
	if err != nil {
		h.logger.WithCaller().Error("Failed to get hash coverage", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get hash coverage"})
		return
	}

	c.JSON(http.StatusOK, coverage)
}

// GetLargestEntries returns the largest files in the timeline
func (h *TimelineHandler) GetLargestEntries(c *gin.Context) {
	limit := h.getLimit(c, 10, 100)

	entries, err := h.statsRepo.GetLargestEntries(limit)
	if err != nil {
		h.logger.WithCaller().Error("Failed to get largest entries", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get largest entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetProcessingStats returns per-source ingestion state
func (h *TimelineHandler) GetProcessingStats(c *gin.Context) {
	stats, err := h.statsRepo.GetProcessingStats()
	if err != nil {
		h.logger.WithCaller().Error("Failed to get processing stats", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get processing stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecentEntries returns the most recently ingested entries
func (h *TimelineHandler) GetRecentEntries(c *gin.Context) {
	limit := h.getLimit(c, 50, 1000)

	offset := 0
	if offsetParam := c.Query("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil && o >= 0 {
			offset = o
		}
	}

	sourceName := c.Query("source")

	entries, err := h.entryRepo.FindRecent(limit, offset, sourceName)
	if err != nil {
		h.logger.WithCaller().Error("Failed to get recent entries", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recent entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetEntriesByTimeRange returns entries whose selected clock falls in
// [start, end], ordered ascending
func (h *TimelineHandler) GetEntriesByTimeRange(c *gin.Context) {
	clock, ok := h.getClock(c)
	if !ok {
		return
	}

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing start (unix seconds)"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing end (unix seconds)"})
		return
	}

	if end < start {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not precede start"})
		return
	}

	limit := h.getLimit(c, 500, 10000)

	entries, err := h.entryRepo.FindByTimeRange(clock, start, end, limit)
	if err != nil {
		h.logger.WithCaller().Error("Failed to query entries by time range",
			h.logger.Args("clock", clock, "start", start, "end", end, "error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetSources lists all registered bodyfile sources with their tracking state
func (h *TimelineHandler) GetSources(c *gin.Context) {
	sources, err := h.sourceRepo.FindAll()
	if err != nil {
		h.logger.WithCaller().Error("Failed to list sources", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}

	c.JSON(http.StatusOK, sources)
}
