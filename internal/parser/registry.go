package parser

import (
	"fmt"
	"sort"

	"timelynx/internal/parser/bodyfile"

	"github.com/pterm/pterm"
)

// TimelineParser converts one text line into a bodyfile record. Implementations
// must be safe for concurrent use: the ingestion engine calls Parse from a
// worker pool.
type TimelineParser interface {
	// Name returns the parser identifier stored on log sources.
	Name() string
	// CanParse reports whether the line looks like a record this parser accepts.
	CanParse(line string) bool
	// Parse converts the line into a record.
	Parse(line string) (*bodyfile.Line, error)
}

// Registry maps parser names to parser instances
type Registry struct {
	parsers map[string]TimelineParser
	logger  *pterm.Logger
}

// NewRegistry creates a registry with all built-in parsers registered
func NewRegistry(logger *pterm.Logger) *Registry {
	r := &Registry{
		parsers: make(map[string]TimelineParser),
		logger:  logger,
	}
	r.Register(bodyfile.NewParser(logger))
	return r
}

// Register adds a parser to the registry, replacing any previous parser
// registered under the same name.
func (r *Registry) Register(p TimelineParser) {
	r.parsers[p.Name()] = p
	r.logger.Debug("Registered timeline parser", r.logger.Args("parser", p.Name()))
}

// Get returns the parser registered under name
func (r *Registry) Get(name string) (TimelineParser, error) {
	p, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("unknown parser type: %q", name)
	}
	return p, nil
}

// Names returns the registered parser names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
