package discovery

import (
	"github.com/pterm/pterm"

	"timelynx/internal/database/models"
	"timelynx/internal/database/repositories"
)

// ServiceDetector finds bodyfile sources produced by one tool or location.
type ServiceDetector interface {
	Name() string
	Detect() ([]*models.BodyfileSource, error)
}

// Engine runs all registered detectors and upserts what they find into the
// source repository. Existing sources keep their tracking state; only the
// path and parser type are refreshed.
type Engine struct {
	detectors  []ServiceDetector
	sourceRepo repositories.BodyfileSourceRepository
	logger     *pterm.Logger
}

// NewEngine creates a discovery engine
func NewEngine(sourceRepo repositories.BodyfileSourceRepository, logger *pterm.Logger) *Engine {
	return &Engine{
		sourceRepo: sourceRepo,
		logger:     logger,
	}
}

// Register adds a detector to the engine
func (e *Engine) Register(d ServiceDetector) {
	e.detectors = append(e.detectors, d)
	e.logger.Debug("Registered source detector", e.logger.Args("detector", d.Name()))
}

// Run executes every detector and persists discovered sources. Returns the
// number of sources newly created.
func (e *Engine) Run() (int, error) {
	e.logger.Info("Running source discovery", e.logger.Args("detectors", len(e.detectors)))

	created := 0
	for _, detector := range e.detectors {
		sources, err := detector.Detect()
		if err != nil {
			e.logger.WithCaller().Warn("Detector failed",
				e.logger.Args("detector", detector.Name(), "error", err))
			continue
		}

		for _, source := range sources {
			existing, err := e.sourceRepo.FindByName(source.Name)
			if err == nil && existing != nil {
				// Known source: refresh location but never reset read position.
				if existing.Path != source.Path || existing.ParserType != source.ParserType {
					existing.Path = source.Path
					existing.ParserType = source.ParserType
					if err := e.sourceRepo.Update(existing); err != nil {
						e.logger.WithCaller().Warn("Failed to update existing source",
							e.logger.Args("source", source.Name, "error", err))
					} else {
						e.logger.Info("Updated existing source",
							e.logger.Args("source", source.Name, "path", source.Path))
					}
				}
				continue
			}

			if err := e.sourceRepo.Create(source); err != nil {
				e.logger.WithCaller().Warn("Failed to register discovered source",
					e.logger.Args("source", source.Name, "error", err))
				continue
			}

			e.logger.Info("Registered new bodyfile source",
				e.logger.Args("source", source.Name, "path", source.Path, "parser", source.ParserType))
			created++
		}
	}

	e.logger.Info("Source discovery complete", e.logger.Args("new_sources", created))
	return created, nil
}
