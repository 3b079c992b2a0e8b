package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"timelynx/internal/api"
	"timelynx/internal/api/handlers"
	"timelynx/internal/banner"
	"timelynx/internal/config"
	"timelynx/internal/database"
	"timelynx/internal/database/repositories"
	"timelynx/internal/discovery"
	"timelynx/internal/ingestion"
	parsers "timelynx/internal/parser"
	"timelynx/internal/realtime"

	"github.com/pterm/pterm"
)

func main() {
	// Initialize logger with INFO level as a sensible default
	// We reconfigure the level after loading the configuration (LOG_LEVEL)
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo)

	// Print banner
	banner.Print()

	logger.Info("Initializing TimeLynx - Filesystem Timeline Analytics...")

	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		logger.WithCaller().Fatal("Failed to load configuration", logger.Args("error", err))
	}

	// Apply configured log level from LOG_LEVEL (default: info)
	// Supported values: trace, debug, info, warn, error, fatal
	lvl := strings.ToLower(cfg.LogLevel)
	var ptermLevel pterm.LogLevel
	switch lvl {
	case "trace":
		ptermLevel = pterm.LogLevelTrace
	case "debug":
		ptermLevel = pterm.LogLevelDebug
	case "info":
		ptermLevel = pterm.LogLevelInfo
	case "warn", "warning":
		ptermLevel = pterm.LogLevelWarn
	case "error":
		ptermLevel = pterm.LogLevelError
	case "fatal":
		ptermLevel = pterm.LogLevelFatal
	default:
		ptermLevel = pterm.LogLevelInfo
	}
	logger = pterm.DefaultLogger.WithLevel(ptermLevel)
	logger.Debug("Log level set", logger.Args("level", lvl))

	logger.Debug("Configuration loaded",
		logger.Args(
			"db_path", cfg.Database.Path,
			"server_port", cfg.Server.Port,
			"watch_enabled", cfg.Sources.WatchEnabled,
		))

	// Initialize database connection with configured settings
	db, err := database.NewConnection(&database.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnMaxLife:  cfg.Database.ConnMaxLife,
	}, logger)
	if err != nil {
		logger.WithCaller().Fatal("Failed to connect to database", logger.Args("error", err))
	}

	// Initialize repositories
	logger.Debug("Initializing repositories...")
	sourceRepo := repositories.NewBodyfileSourceRepository(db)
	entryRepo := repositories.NewTimelineEntryRepository(db, logger)
	statsRepo := repositories.NewStatsRepository(db, logger)

	// Initialize parser registry
	logger.Debug("Initializing parser registry...")
	parserRegistry := parsers.NewRegistry(logger)

	// Run discovery engine to auto-detect bodyfile sources
	logger.Debug("Running discovery engine...")
	discoveryEngine := discovery.NewEngine(sourceRepo, logger)
	discoveryEngine.Register(discovery.NewBodyfileDetector(
		cfg.Sources.BodyfilePath,
		cfg.Sources.AutoDiscover,
		logger,
	))
	if _, err := discoveryEngine.Run(); err != nil {
		logger.WithCaller().Warn("Discovery engine failed", logger.Args("error", err))
	}

	// Initialize file watcher for low-latency ingestion (optional)
	var watcher *ingestion.FileWatcher
	if cfg.Sources.WatchEnabled {
		watcher, err = ingestion.NewFileWatcher(logger)
		if err != nil {
			logger.Warn("File watcher unavailable, falling back to polling only",
				logger.Args("error", err))
			watcher = nil
		}
	}

	// Initialize ingestion coordinator
	logger.Debug("Initializing ingestion coordinator...")
	coordinator := ingestion.NewCoordinator(
		sourceRepo,
		entryRepo,
		parserRegistry,
		watcher,
		ingestion.ProcessorConfig{
			PollInterval: cfg.Sources.PollInterval,
			BatchSize:    cfg.Performance.BatchSize,
			WorkerCount:  cfg.Performance.WorkerPoolSize,
		},
		logger,
	)

	// Initialize database cleanup service, pausing ingestion during VACUUM
	logger.Debug("Initializing database cleanup service...")
	cleanupService := database.NewCleanupService(
		db,
		logger,
		cfg.Database.RetentionDays,
		cfg.Database.CleanupInterval,
		cfg.Database.CleanupTime,
		cfg.Database.VacuumEnabled,
		coordinator,
	)
	cleanupService.Start()

	// Start ingestion engine
	logger.Info("Starting ingestion engine...")
	if err := coordinator.Start(); err != nil {
		logger.WithCaller().Fatal("Failed to start ingestion coordinator", logger.Args("error", err))
	}
	coordinator.StartSyncLoop(cfg.Sources.SyncInterval)

	logger.Info("Ingestion engine started",
		logger.Args("processors", coordinator.GetProcessorCount()))

	// Initialize ingest metrics collector with configured interval
	logger.Info("Initializing ingest metrics collector...")
	metricsCollector := realtime.NewMetricsCollector(db, logger)
	metricsCollector.Start(cfg.Performance.MetricsInterval)

	// Initialize web server with configured settings
	logger.Info("Initializing web server...")
	timelineHandler := handlers.NewTimelineHandler(statsRepo, entryRepo, sourceRepo, logger)
	codecHandler := handlers.NewCodecHandler(logger)
	realtimeHandler := handlers.NewRealtimeHandler(metricsCollector, logger)
	maintenanceHandler := handlers.NewMaintenanceHandler(cleanupService, logger)
	webServer := api.NewServer(&api.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		Production: cfg.Server.Production,
	}, timelineHandler, codecHandler, realtimeHandler, maintenanceHandler, logger)

	// Start web server in goroutine
	go func() {
		if err := webServer.Run(); err != nil {
			logger.WithCaller().Error("Web server error", logger.Args("error", err))
		}
	}()

	logger.Info("🐱 TimeLynx is running",
		logger.Args(
			"url", pterm.Sprintf("http://localhost:%d", cfg.Server.Port),
			"processors", coordinator.GetProcessorCount(),
		))

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan

	logger.Info("Shutdown signal received, stopping services...")

	// Stop ingestion coordinator first (prevents new data writes)
	logger.Debug("Stopping ingestion coordinator...")
	coordinator.Stop()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Debug("File watcher close error", logger.Args("error", err))
		}
	}

	// Stop cleanup service
	logger.Debug("Stopping cleanup service...")
	cleanupService.Stop()

	// Create shutdown context with timeout (handles open SSE connections)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop web server (this will close SSE connections)
	logger.Debug("Stopping web server...")
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.WithCaller().Error("Web server shutdown error", logger.Args("error", err))
	} else {
		logger.Info("Web server stopped successfully")
	}

	logger.Info("TimeLynx stopped gracefully")
}
