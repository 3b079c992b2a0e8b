package discovery

import (
	"bufio"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"timelynx/internal/database/models"
	"timelynx/internal/parser/bodyfile"
)

// BodyfileDetector finds bodyfile timeline exports on disk.
type BodyfileDetector struct {
	logger         *pterm.Logger
	configuredPath string
	autoDiscover   bool
}

// NewBodyfileDetector creates a detector. configuredPath takes priority over
// auto-discovery when it points at a readable file.
func NewBodyfileDetector(configuredPath string, autoDiscover bool, logger *pterm.Logger) ServiceDetector {
	return &BodyfileDetector{
		logger:         logger,
		configuredPath: configuredPath,
		autoDiscover:   autoDiscover,
	}
}

func (d *BodyfileDetector) Name() string {
	return "bodyfile"
}

func (d *BodyfileDetector) Detect() ([]*models.BodyfileSource, error) {
	sources := []*models.BodyfileSource{}
	d.logger.Trace("Detecting bodyfile sources...")

	// Priority: an explicitly configured path disables auto-discovery when it
	// is valid; otherwise fall back to the well-known export locations.
	paths := []string{}

	configuredPathValid := false
	if d.configuredPath != "" {
		d.logger.Debug("Checking configured bodyfile path", d.logger.Args("path", d.configuredPath))
		if fileInfo, err := os.Stat(d.configuredPath); err == nil && !fileInfo.IsDir() {
			configuredPathValid = true
			d.logger.Info("Using configured BODYFILE_PATH (auto-discovery disabled)",
				d.logger.Args("path", d.configuredPath))
		} else {
			d.logger.Warn("Configured BODYFILE_PATH not accessible, falling back to auto-discovery",
				d.logger.Args("path", d.configuredPath, "error", err))
		}
	}

	if configuredPathValid {
		paths = append(paths, d.configuredPath)
	} else if d.autoDiscover {
		d.logger.Debug("Using auto-discovery for bodyfile sources")
		paths = append(paths,
			"bodyfile.txt",
			"body.txt",
			"timeline.body",
			"evidence/bodyfile.txt",
			"evidence/body.txt",
		)
	} else {
		d.logger.Info("Auto-discovery disabled and no valid BODYFILE_PATH configured")
	}

	for _, path := range paths {
		d.logger.Trace("Checking", d.logger.Args("path", path))
		fileInfo, err := os.Stat(path)
		if err != nil {
			d.logger.Trace("File not accessible", d.logger.Args("path", path, "error", err.Error()))
			continue
		}
		if fileInfo.IsDir() || fileInfo.Size() == 0 {
			d.logger.Trace("File is directory or empty", d.logger.Args("path", path, "size", fileInfo.Size()))
			continue
		}

		d.logger.Trace("Validating format", d.logger.Args("path", path))
		if isBodyfileFormat(path) {
			d.logger.Info("Bodyfile source detected", d.logger.Args("path", path))
			sources = append(sources, &models.BodyfileSource{
				Name:       generateName(path),
				Path:       path,
				ParserType: "bodyfile",
			})
		} else {
			d.logger.WithCaller().Warn("Format invalid - not a bodyfile timeline export",
				d.logger.Args("path", path))
		}
	}

	if len(sources) == 0 {
		if d.configuredPath != "" {
			d.logger.Warn("No valid bodyfile source found at configured path",
				d.logger.Args("BODYFILE_PATH", d.configuredPath))
		} else if d.autoDiscover {
			d.logger.Warn("No bodyfile sources found via auto-discovery",
				d.logger.Args("hint", "Set BODYFILE_PATH in .env or place a bodyfile.txt in the working directory"))
		} else {
			d.logger.Warn("No bodyfile sources configured",
				d.logger.Args("hint", "Set BODYFILE_PATH in .env or enable SOURCE_AUTO_DISCOVER=true"))
		}
	}

	return sources, nil
}

// isBodyfileFormat checks the first few non-comment lines against the codec.
// One parseable line is enough to accept the file.
func isBodyfileFormat(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	checked := 0
	for scanner.Scan() && checked < 5 {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		checked++
		if _, err := bodyfile.ParseLine(line); err == nil {
			return true
		}
	}
	return false
}

func generateName(path string) string {
	pathSplit := strings.Split(path, "/")
	fileNameExtension := pathSplit[len(pathSplit)-1]
	fileName := strings.Split(fileNameExtension, ".")[0]
	return "bodyfile-" + fileName
}
