package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
)

func TestBodyfileDetector_ConfiguredPath(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	path := filepath.Join(t.TempDir(), "export.body")

	content := "# fls -r -m / image.dd\n" +
		"0|/Users/Administrator ($FILE_NAME)|93552-48-2|d/drwxrwxrwx|0|0|92|1577092511|1577092511|1577092511|-1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test bodyfile: %v", err)
	}

	detector := NewBodyfileDetector(path, false, logger)

	sources, err := detector.Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(sources))
	}
	if sources[0].Path != path {
		t.Errorf("Expected path %q, got %q", path, sources[0].Path)
	}
	if sources[0].ParserType != "bodyfile" {
		t.Errorf("Expected parser type 'bodyfile', got %q", sources[0].ParserType)
	}
	if sources[0].Name != "bodyfile-export" {
		t.Errorf("Expected name 'bodyfile-export', got %q", sources[0].Name)
	}
}

func TestBodyfileDetector_RejectsWrongFormat(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	path := filepath.Join(t.TempDir(), "notbody.txt")

	if err := os.WriteFile(path, []byte("just some text\nthat is not a bodyfile\n"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	detector := NewBodyfileDetector(path, false, logger)

	sources, err := detector.Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("Expected no sources for non-bodyfile content, got %d", len(sources))
	}
}

func TestBodyfileDetector_NoPathNoDiscovery(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)

	detector := NewBodyfileDetector("", false, logger)

	sources, err := detector.Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("Expected no sources with discovery disabled, got %d", len(sources))
	}
}

func TestGenerateName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"bodyfile.txt", "bodyfile-bodyfile"},
		{"evidence/body.txt", "bodyfile-body"},
		{"/cases/2024/host-01.body", "bodyfile-host-01"},
	}

	for _, tc := range tests {
		if got := generateName(tc.path); got != tc.want {
			t.Errorf("generateName(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
