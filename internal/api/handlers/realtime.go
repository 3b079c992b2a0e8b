package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"timelynx/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// RealtimeHandler handles real-time streaming endpoints
type RealtimeHandler struct {
	collector *realtime.MetricsCollector
	logger    *pterm.Logger
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(collector *realtime.MetricsCollector, logger *pterm.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		collector: collector,
		logger:    logger,
	}
}

// StreamMetrics streams ingest metrics via Server-Sent Events
func (h *RealtimeHandler) StreamMetrics(c *gin.Context) {
	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	clientGone := c.Writer.CloseNotify()

	h.logger.Debug("Client connected to ingest metrics stream",
		h.logger.Args("client_ip", c.ClientIP()))

	for {
		select {
		case <-c.Request.Context().Done():
			h.logger.Debug("Request context cancelled (server shutdown or timeout)",
				h.logger.Args("client_ip", c.ClientIP()))
			return

		case <-clientGone:
			h.logger.Debug("Client disconnected from ingest metrics stream",
				h.logger.Args("client_ip", c.ClientIP()))
			return

		case <-ticker.C:
			metrics := h.collector.GetMetrics()

			data, err := json.Marshal(metrics)
			if err != nil {
				h.logger.Error("Failed to marshal metrics", h.logger.Args("error", err))
				continue
			}

			_, err = fmt.Fprintf(c.Writer, "data: %s\n\n", data)
			if err != nil {
				h.logger.Debug("Failed to write SSE data", h.logger.Args("error", err))
				return
			}

			c.Writer.Flush()
		}
	}
}

// GetCurrentMetrics returns a single snapshot of current ingest metrics
func (h *RealtimeHandler) GetCurrentMetrics(c *gin.Context) {
	metrics := h.collector.GetMetrics()
	c.JSON(200, metrics)
}

// GetPerSourceMetrics returns current ingest metrics for each source
func (h *RealtimeHandler) GetPerSourceMetrics(c *gin.Context) {
	metrics := h.collector.GetPerSourceMetrics()
	c.JSON(200, metrics)
}
