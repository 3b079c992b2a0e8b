package bodyfile

import (
	"errors"
	"testing"

	"github.com/pterm/pterm"
)

func TestParser_CanParse(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	parser := NewParser(logger)

	tests := []struct {
		name     string
		line     string
		expected bool
	}{
		{"valid line", exampleLine, true},
		{"empty line", "", false},
		{"comment line", "# body file generated by fls", false},
		{"comment with pipes", "#|a|b|c|d|e|f|g|h|i|j", false},
		{"too few pipes", "a|b|c", false},
		{"too many pipes", exampleLine + "|extra", false},
		{"garbage with right pipe count", "a|b|c|d|e|f|g|h|i|j|k", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parser.CanParse(tc.line); got != tc.expected {
				t.Errorf("CanParse(%q) = %v, want %v", tc.line, got, tc.expected)
			}
		})
	}
}

func TestParser_Name(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	if got := NewParser(logger).Name(); got != "bodyfile" {
		t.Errorf("Expected parser name 'bodyfile', got %q", got)
	}
}

func TestParser_Parse(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	parser := NewParser(logger)

	l, err := parser.Parse(exampleLine)
	if err != nil {
		t.Fatalf("Failed to parse example line: %v", err)
	}
	if l.Name != "/Users/Administrator ($FILE_NAME)" {
		t.Errorf("Unexpected Name: %q", l.Name)
	}

	// CanParse accepts on shape alone; Parse still reports field-level errors.
	_, err = parser.Parse("a|b|c|d|e|f|g|h|i|j|k")
	var fErr *InvalidFieldError
	if !errors.As(err, &fErr) {
		t.Fatalf("Expected InvalidFieldError, got %v", err)
	}
	if fErr.Field != "uid" {
		t.Errorf("Expected first failing field 'uid', got %q", fErr.Field)
	}
}
