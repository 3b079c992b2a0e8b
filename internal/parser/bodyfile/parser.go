package bodyfile

import (
	"strings"

	"github.com/pterm/pterm"
)

// Parser adapts the line codec to the timeline parser interface used by the
// ingestion engine. Parsing itself is stateless; the struct only carries the
// logger.
type Parser struct {
	logger *pterm.Logger
}

// NewParser creates a new bodyfile parser instance
func NewParser(logger *pterm.Logger) *Parser {
	return &Parser{logger: logger}
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "bodyfile"
}

// CanParse checks whether the line has the shape of a bodyfile record.
// Comment lines ('#' prefix) and blank lines are rejected here so the
// processor skips them without counting a parse failure.
func (p *Parser) CanParse(line string) bool {
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	return strings.Count(line, "|") == FieldCount-1
}

// Parse parses a bodyfile line into a Line record
func (p *Parser) Parse(line string) (*Line, error) {
	l, err := ParseLine(line)
	if err != nil {
		linePreview := line
		if len(linePreview) > 150 {
			linePreview = linePreview[:150] + "..."
		}
		p.logger.Warn("Failed to parse bodyfile line",
			p.logger.Args("error", err, "line_preview", linePreview))
		return nil, err
	}

	p.logger.Trace("Parsed bodyfile line",
		p.logger.Args("name", l.Name, "inode", l.Inode, "size", l.Size))

	return l, nil
}
