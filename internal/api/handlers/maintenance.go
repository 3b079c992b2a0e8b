package handlers

import (
	"net/http"

	"timelynx/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// CleanupStatsProvider reports retention state and the last completed cleanup
// run. Satisfied by database.CleanupService.
type CleanupStatsProvider interface {
	GetStats() database.CleanupStats
}

// MaintenanceHandler exposes database maintenance state over the stats API
type MaintenanceHandler struct {
	cleanup CleanupStatsProvider
	logger  *pterm.Logger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(cleanup CleanupStatsProvider, logger *pterm.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		cleanup: cleanup,
		logger:  logger,
	}
}

// GetCleanupStats returns the retention configuration and last cleanup run
func (h *MaintenanceHandler) GetCleanupStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cleanup.GetStats())
}
