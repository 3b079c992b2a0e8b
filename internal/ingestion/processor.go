package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"timelynx/internal/database/models"
	"timelynx/internal/database/repositories"
	"timelynx/internal/parser"
	"timelynx/internal/parser/bodyfile"
)

// SourceProcessor processes one bodyfile source: it reads new lines
// incrementally, parses them through the registered codec, and persists the
// resulting timeline entries in batches.
type SourceProcessor struct {
	source       *models.BodyfileSource
	reader       *IncrementalReader
	parser       parser.TimelineParser
	entryRepo    repositories.TimelineEntryRepository
	sourceRepo   repositories.BodyfileSourceRepository
	logger       *pterm.Logger
	pollInterval time.Duration
	batchSize    int
	workerCount  int
	notify       <-chan struct{}
	stopCh       chan struct{}
	doneCh       chan struct{}
	paused       bool
	pauseMu      sync.RWMutex
}

// ProcessorConfig holds tuning knobs for a source processor.
type ProcessorConfig struct {
	PollInterval time.Duration
	BatchSize    int
	WorkerCount  int
}

// NewSourceProcessor creates a processor for one source. notify may be nil;
// when set, an event on it triggers an immediate poll (used by the file
// watcher to cut latency below the poll interval).
func NewSourceProcessor(
	source *models.BodyfileSource,
	registry *parser.Registry,
	entryRepo repositories.TimelineEntryRepository,
	sourceRepo repositories.BodyfileSourceRepository,
	cfg ProcessorConfig,
	notify <-chan struct{},
	logger *pterm.Logger,
) (*SourceProcessor, error) {
	p, err := registry.Get(source.ParserType)
	if err != nil {
		return nil, err
	}

	reader := NewIncrementalReader(
		source.Path,
		source.LastPosition,
		source.LastInode,
		source.LastLineContent,
		logger,
	)

	return &SourceProcessor{
		source:       source,
		reader:       reader,
		parser:       p,
		entryRepo:    entryRepo,
		sourceRepo:   sourceRepo,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		workerCount:  cfg.WorkerCount,
		notify:       notify,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins the processing loop. Blocks until Stop is called or the
// context is cancelled; run it in a goroutine.
func (sp *SourceProcessor) Start(ctx context.Context) {
	defer close(sp.doneCh)

	sp.logger.Info("Starting source processor",
		sp.logger.Args(
			"source", sp.source.Name,
			"path", sp.source.Path,
			"parser", sp.parser.Name(),
			"poll_interval", sp.pollInterval.String(),
		))

	// Process immediately on start, then on the ticker or watcher events.
	sp.processOnce(ctx)

	ticker := time.NewTicker(sp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sp.logger.Info("Source processor stopped by context", sp.logger.Args("source", sp.source.Name))
			return
		case <-sp.stopCh:
			sp.logger.Info("Source processor stopped", sp.logger.Args("source", sp.source.Name))
			return
		case <-ticker.C:
			sp.processOnce(ctx)
		case <-sp.notify:
			sp.processOnce(ctx)
		}
	}
}

// Stop signals the processor to stop and waits for it to finish.
func (sp *SourceProcessor) Stop() {
	close(sp.stopCh)
	<-sp.doneCh
}

// Pause suspends processing (used during the database maintenance window).
func (sp *SourceProcessor) Pause() {
	sp.pauseMu.Lock()
	sp.paused = true
	sp.pauseMu.Unlock()
}

// Resume resumes processing after a pause.
func (sp *SourceProcessor) Resume() {
	sp.pauseMu.Lock()
	sp.paused = false
	sp.pauseMu.Unlock()
}

func (sp *SourceProcessor) isPaused() bool {
	sp.pauseMu.RLock()
	defer sp.pauseMu.RUnlock()
	return sp.paused
}

// processOnce drains the source: it reads and persists batches until the
// reader reports nothing new.
func (sp *SourceProcessor) processOnce(ctx context.Context) {
	if sp.isPaused() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sp.stopCh:
			return
		default:
		}

		lines, newPos, newInode, lastLine, err := sp.reader.ReadBatch(sp.batchSize)
		if err != nil {
			sp.logger.Error("Failed to read batch",
				sp.logger.Args("source", sp.source.Name, "error", err))
			return
		}

		if len(lines) == 0 {
			return
		}

		entries := sp.parseParallel(lines)

		if len(entries) > 0 {
			if err := sp.entryRepo.CreateBatch(entries); err != nil {
				sp.logger.Error("Failed to persist batch, keeping position for retry",
					sp.logger.Args("source", sp.source.Name, "count", len(entries), "error", err))
				return
			}
		}

		sp.reader.UpdatePosition(newPos, newInode, lastLine)
		sp.updateTracking(newPos, newInode, lastLine)

		sp.logger.Debug("Processed batch",
			sp.logger.Args(
				"source", sp.source.Name,
				"lines", len(lines),
				"entries", len(entries),
				"position", newPos,
			))

		// A short batch means we drained the file.
		if len(lines) < sp.batchSize {
			return
		}
	}
}

// parseParallel distributes lines across a worker pool. Output order matches
// input order; lines that fail to parse are logged and skipped.
func (sp *SourceProcessor) parseParallel(lines []string) []*models.TimelineEntry {
	if len(lines) == 0 {
		return nil
	}

	workers := sp.workerCount
	if workers < 1 {
		workers = 1
	}
	if workers > len(lines) {
		workers = len(lines)
	}

	results := make([]*models.TimelineEntry, len(lines))
	jobs := make(chan int, len(lines))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				line := lines[i]
				parsed, err := sp.parser.Parse(line)
				if err != nil {
					// Already logged by the parser with field detail.
					continue
				}
				results[i] = sp.toEntry(parsed)
			}
		}()
	}

	for i := range lines {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	entries := make([]*models.TimelineEntry, 0, len(lines))
	for _, e := range results {
		if e != nil {
			entries = append(entries, e)
		}
	}
	return entries
}

// toEntry converts a parsed line into a persistence model. The line hash is
// keyed on source name plus the canonical serialization so identical records
// from different sources stay distinct while re-reads dedupe.
func (sp *SourceProcessor) toEntry(parsed *bodyfile.Line) *models.TimelineEntry {
	h := sha256.Sum256([]byte(sp.source.Name + "\x00" + parsed.String()))

	return &models.TimelineEntry{
		SourceName: sp.source.Name,
		LineHash:   hex.EncodeToString(h[:]),
		MD5:        parsed.MD5,
		Name:       parsed.Name,
		Inode:      parsed.Inode,
		Mode:       parsed.Mode,
		UID:        parsed.UID,
		GID:        parsed.GID,
		Size:       parsed.Size,
		Atime:      parsed.Atime,
		Mtime:      parsed.Mtime,
		Ctime:      parsed.Ctime,
		Crtime:     parsed.Crtime,
	}
}

func (sp *SourceProcessor) updateTracking(position int64, inode int64, lastLine string) {
	if err := sp.sourceRepo.UpdateTracking(sp.source.Name, position, inode, lastLine); err != nil {
		sp.logger.Warn("Failed to persist source tracking state",
			sp.logger.Args("source", sp.source.Name, "error", err))
	}
}
