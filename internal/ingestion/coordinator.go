package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"timelynx/internal/database/models"
	"timelynx/internal/database/repositories"
	parsers "timelynx/internal/parser"
)

// Coordinator manages the source processors, one per bodyfile source. It owns
// the optional file watcher; a nil watcher means processors run on their poll
// interval alone.
type Coordinator struct {
	sourceRepo repositories.BodyfileSourceRepository
	entryRepo  repositories.TimelineEntryRepository
	parserReg  *parsers.Registry
	watcher    *FileWatcher
	processors map[string]*SourceProcessor
	logger     *pterm.Logger
	procCfg    ProcessorConfig
	mu         sync.RWMutex
	isRunning  bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewCoordinator creates a new ingestion coordinator. watcher may be nil.
func NewCoordinator(
	sourceRepo repositories.BodyfileSourceRepository,
	entryRepo repositories.TimelineEntryRepository,
	parserReg *parsers.Registry,
	watcher *FileWatcher,
	procCfg ProcessorConfig,
	logger *pterm.Logger,
) *Coordinator {
	return &Coordinator{
		sourceRepo: sourceRepo,
		entryRepo:  entryRepo,
		parserReg:  parserReg,
		watcher:    watcher,
		processors: make(map[string]*SourceProcessor),
		logger:     logger,
		procCfg:    procCfg,
	}
}

// Start initializes and starts processors for every known source
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning {
		c.logger.Warn("Coordinator already running, skipping start")
		return nil
	}

	c.logger.Info("Starting ingestion coordinator...")

	c.ctx, c.cancel = context.WithCancel(context.Background())

	sources, err := c.sourceRepo.FindAll()
	if err != nil {
		c.logger.WithCaller().Error("Failed to load bodyfile sources from database",
			c.logger.Args("error", err))
		return fmt.Errorf("failed to load bodyfile sources: %w", err)
	}

	if len(sources) == 0 {
		c.logger.Warn("No bodyfile sources found in database. Run discovery or register sources manually.")
		c.logger.Info("Ingestion coordinator will run in standby mode, waiting for sources to be added.")
		c.isRunning = true
		return nil
	}

	c.logger.Info("Found bodyfile sources", c.logger.Args("count", len(sources)))

	successCount := 0
	for _, source := range sources {
		if err := c.startSourceProcessorLocked(source); err != nil {
			c.logger.WithCaller().Warn("Failed to start processor for source (will retry on sync)",
				c.logger.Args("source", source.Name, "error", err))
			continue
		}
		successCount++
	}

	if successCount == 0 {
		c.logger.Warn("No source processors could be started yet. Coordinator will run in standby mode.")
	}

	c.isRunning = true
	c.logger.Info("Ingestion coordinator started",
		c.logger.Args("active_processors", successCount, "total_sources", len(sources)))

	return nil
}

// startSourceProcessorLocked creates and starts a processor for one source.
// Caller must hold c.mu.
func (c *Coordinator) startSourceProcessorLocked(source *models.BodyfileSource) error {
	if _, exists := c.processors[source.Name]; exists {
		c.logger.Debug("Processor already exists for source, skipping", c.logger.Args("source", source.Name))
		return nil
	}

	var notify <-chan struct{}
	if c.watcher != nil {
		ch, err := c.watcher.Subscribe(source.Path)
		if err != nil {
			c.logger.Warn("Failed to watch source path, falling back to polling only",
				c.logger.Args("source", source.Name, "path", source.Path, "error", err))
		} else {
			notify = ch
		}
	}

	processor, err := NewSourceProcessor(
		source,
		c.parserReg,
		c.entryRepo,
		c.sourceRepo,
		c.procCfg,
		notify,
		c.logger,
	)
	if err != nil {
		if c.watcher != nil && notify != nil {
			c.watcher.Unsubscribe(source.Path)
		}
		return fmt.Errorf("failed to create processor: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		processor.Start(c.ctx)
	}()

	c.processors[source.Name] = processor

	c.logger.Info("Started processor for source",
		c.logger.Args(
			"source", source.Name,
			"path", source.Path,
			"last_position", source.LastPosition,
		))

	return nil
}

// Stop gracefully stops all source processors
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning {
		c.logger.Debug("Coordinator not running, skipping stop")
		return
	}

	c.logger.Info("Stopping ingestion coordinator...",
		c.logger.Args("active_processors", len(c.processors)))

	c.cancel()
	c.wg.Wait()

	if c.watcher != nil {
		for _, proc := range c.processors {
			c.watcher.Unsubscribe(proc.source.Path)
		}
	}

	c.processors = make(map[string]*SourceProcessor)
	c.isRunning = false

	c.logger.Info("Ingestion coordinator stopped successfully")
}

// GetStatus returns the current status of the coordinator
func (c *Coordinator) GetStatus() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"is_running":        c.isRunning,
		"active_processors": len(c.processors),
	}
}

// IsRunning returns whether the coordinator is currently running
func (c *Coordinator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}

// GetProcessorCount returns the number of active processors
func (c *Coordinator) GetProcessorCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.processors)
}

// GetProcessorSources returns the names of sources with active processors
func (c *Coordinator) GetProcessorSources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.processors))
	for name := range c.processors {
		names = append(names, name)
	}
	return names
}

// Restart stops and restarts the coordinator
func (c *Coordinator) Restart() error {
	c.logger.Info("Restarting ingestion coordinator...")
	c.Stop()
	return c.Start()
}

// AddProcessor dynamically adds a processor for a new bodyfile source
// without disturbing existing processors
func (c *Coordinator) AddProcessor(source *models.BodyfileSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning {
		return fmt.Errorf("coordinator is not running")
	}

	c.logger.Info("Adding new processor dynamically", c.logger.Args("source", source.Name))

	if err := c.startSourceProcessorLocked(source); err != nil {
		c.logger.WithCaller().Error("Failed to add processor",
			c.logger.Args("source", source.Name, "error", err))
		return fmt.Errorf("failed to add processor: %w", err)
	}

	c.logger.Info("Successfully added new processor",
		c.logger.Args("source", source.Name, "total_processors", len(c.processors)))

	return nil
}

// RemoveProcessor gracefully stops and removes the processor for a source
func (c *Coordinator) RemoveProcessor(sourceName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning {
		return fmt.Errorf("coordinator is not running")
	}

	processor, exists := c.processors[sourceName]
	if !exists {
		c.logger.Debug("Processor not found, nothing to remove", c.logger.Args("source", sourceName))
		return nil
	}

	c.logger.Info("Removing processor", c.logger.Args("source", sourceName))

	processor.Stop()
	if c.watcher != nil {
		c.watcher.Unsubscribe(processor.source.Path)
	}
	delete(c.processors, sourceName)

	c.logger.Info("Successfully removed processor",
		c.logger.Args("source", sourceName, "remaining_processors", len(c.processors)))

	return nil
}

// SyncWithDatabase reconciles active processors with the database: it adds
// processors for new sources and removes processors for deleted ones.
func (c *Coordinator) SyncWithDatabase() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning {
		c.logger.Debug("Coordinator not running, skipping database sync")
		return nil
	}

	c.logger.Debug("Syncing processors with database...")

	sources, err := c.sourceRepo.FindAll()
	if err != nil {
		c.logger.WithCaller().Error("Failed to load bodyfile sources during sync",
			c.logger.Args("error", err))
		return fmt.Errorf("failed to load bodyfile sources: %w", err)
	}

	dbSources := make(map[string]*models.BodyfileSource)
	for _, source := range sources {
		dbSources[source.Name] = source
	}

	// Phase 1: remove processors for sources deleted from the database
	for name, processor := range c.processors {
		if _, exists := dbSources[name]; !exists {
			c.logger.Info("Source removed from database, stopping processor",
				c.logger.Args("source", name))

			processor.Stop()
			if c.watcher != nil {
				c.watcher.Unsubscribe(processor.source.Path)
			}
			delete(c.processors, name)
		}
	}

	// Phase 2: add processors for new sources
	addedCount := 0
	for _, source := range sources {
		if _, exists := c.processors[source.Name]; !exists {
			c.logger.Info("New source found in database, starting processor",
				c.logger.Args("source", source.Name))

			if err := c.startSourceProcessorLocked(source); err != nil {
				c.logger.WithCaller().Warn("Failed to start processor for new source",
					c.logger.Args("source", source.Name, "error", err))
				continue
			}
			addedCount++
		}
	}

	if addedCount > 0 {
		c.logger.Info("Database sync completed - processors added",
			c.logger.Args("added", addedCount, "total_processors", len(c.processors)))
	} else {
		c.logger.Debug("Database sync completed - no changes",
			c.logger.Args("total_processors", len(c.processors)))
	}

	return nil
}

// StartSyncLoop starts a background goroutine that periodically syncs
// processors with the database so new sources are picked up automatically.
func (c *Coordinator) StartSyncLoop(interval time.Duration) {
	c.logger.Info("Starting database sync loop",
		c.logger.Args("interval", interval.String()))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			c.mu.RLock()
			isRunning := c.isRunning
			c.mu.RUnlock()

			if !isRunning {
				c.logger.Debug("Coordinator stopped, exiting sync loop")
				return
			}

			if err := c.SyncWithDatabase(); err != nil {
				c.logger.WithCaller().Warn("Database sync failed",
					c.logger.Args("error", err))
			}
		}
	}()
}
