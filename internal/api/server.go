package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"timelynx/internal/api/handlers"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	server *http.Server
	logger *pterm.Logger
	port   int
}

// Config holds server configuration
type Config struct {
	Host       string
	Port       int
	Production bool
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *Config,
	timelineHandler *handlers.TimelineHandler,
	codecHandler *handlers.CodecHandler,
	realtimeHandler *handlers.RealtimeHandler,
	maintenanceHandler *handlers.MaintenanceHandler,
	logger *pterm.Logger,
) *Server {
	// Set Gin mode
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "TimeLynx API Server",
			"api":     "/api/v1",
			"health":  "/health",
		})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		// Summary stats
		api.GET("/stats/summary", timelineHandler.GetSummary)

		// Timeline data
		api.GET("/stats/timeline", timelineHandler.GetActivityTimeline)

		// Top stats
		api.GET("/stats/top/uids", timelineHandler.GetTopUIDs)
		api.GET("/stats/top/directories", timelineHandler.GetTopDirectories)
		api.GET("/stats/top/extensions", timelineHandler.GetTopExtensions)
		api.GET("/stats/largest", timelineHandler.GetLargestEntries)

		// Distribution stats
		api.GET("/stats/distribution/modes", timelineHandler.GetModeDistribution)
		api.GET("/stats/distribution/sizes", timelineHandler.GetSizeDistribution)

		// Hash and processing stats
		api.GET("/stats/hash-coverage", timelineHandler.GetHashCoverage)
		api.GET("/stats/processing", timelineHandler.GetProcessingStats)
		api.GET("/stats/cleanup", maintenanceHandler.GetCleanupStats)

		// Timeline entries
		api.GET("/entries/recent", timelineHandler.GetRecentEntries)
		api.GET("/entries", timelineHandler.GetEntriesByTimeRange)

		// Sources list
		api.GET("/sources", timelineHandler.GetSources)

		// Ad-hoc codec access
		api.POST("/codec/parse", codecHandler.Parse)
		api.POST("/codec/format", codecHandler.Format)

		// Real-time metrics
		api.GET("/realtime/metrics", realtimeHandler.GetCurrentMetrics)
		api.GET("/realtime/stream", realtimeHandler.StreamMetrics)
		api.GET("/realtime/sources", realtimeHandler.GetPerSourceMetrics)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		router: router,
		server: &http.Server{
			Addr:           addr,
			Handler:        router,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   300 * time.Second, // Long timeout for SSE streams
			MaxHeaderBytes: 1 << 20,
		},
		logger: logger,
		port:   cfg.Port,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("Starting web server", s.logger.Args("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.WithCaller().Error("Web server failed", s.logger.Args("error", err))
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
