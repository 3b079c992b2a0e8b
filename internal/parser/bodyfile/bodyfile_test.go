package bodyfile

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const exampleLine = `0|/Users/Administrator ($FILE_NAME)|93552-48-2|d/drwxrwxrwx|0|0|92|1577092511|1577092511|1577092511|-1`

func TestParseLine_Example(t *testing.T) {
	l, err := ParseLine(exampleLine)
	if err != nil {
		t.Fatalf("Failed to parse example line: %v", err)
	}

	if l.MD5 != "0" {
		t.Errorf("Expected MD5 '0', got %q", l.MD5)
	}
	if l.Name != "/Users/Administrator ($FILE_NAME)" {
		t.Errorf("Unexpected Name: %q", l.Name)
	}
	if l.Inode != "93552-48-2" {
		t.Errorf("Expected Inode '93552-48-2', got %q", l.Inode)
	}
	if l.Mode != "d/drwxrwxrwx" {
		t.Errorf("Expected Mode 'd/drwxrwxrwx', got %q", l.Mode)
	}
	if l.UID != 0 || l.GID != 0 {
		t.Errorf("Expected UID/GID 0, got %d/%d", l.UID, l.GID)
	}
	if l.Size != 92 {
		t.Errorf("Expected Size 92, got %d", l.Size)
	}
	if l.Atime != 1577092511 || l.Mtime != 1577092511 || l.Ctime != 1577092511 {
		t.Errorf("Unexpected times: %d/%d/%d", l.Atime, l.Mtime, l.Ctime)
	}
	if l.Crtime != -1 {
		t.Errorf("Expected Crtime -1, got %d", l.Crtime)
	}
}

func TestParseLine_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"example with unknown crtime", exampleLine},
		{"md5 placeholder", `0|/etc/passwd|12345|r/rrw-r--r--|0|0|1024|1577092511|1577092511|1577092511|1577092511`},
		{"md5 hash", `d41d8cd98f00b204e9800998ecf8427e|/empty|2|r/rrw-r--r--|1000|1000|0|1|1|1|1`},
		{"all times unknown", `0|/x|0||0|0|0|-1|-1|-1|-1`},
		{"ads suffix in name", `0|C:/Windows/file.dat ($DATA:stream)|5-128-1|r/rrwxrwxrwx|48|48|77|1322242496|1322242496|1322242496|1322242496`},
		{"whitespace preserved in name", `0|  spaced name  |0|d/drwxr-xr-x|0|0|0|10|0|0|0`},
		{"empty text fields", `||||0|0|0|0|0|0|0`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := ParseLine(tc.line)
			if err != nil {
				t.Fatalf("Failed to parse: %v", err)
			}
			if got := l.String(); got != tc.line {
				t.Errorf("Round trip mismatch:\n in: %q\nout: %q", tc.line, got)
			}
		})
	}
}

func TestParseLine_Idempotence(t *testing.T) {
	first, err := ParseLine(exampleLine)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	second, err := ParseLine(first.String())
	if err != nil {
		t.Fatalf("Failed to re-parse formatted line: %v", err)
	}

	if *first != *second {
		t.Errorf("parse(format(parse(line))) != parse(line):\n%+v\n%+v", first, second)
	}
}

func TestParseLine_FieldCount(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		count int
	}{
		{"ten fields", strings.Repeat("x|", 9) + "x", 10},
		{"twelve fields", strings.Repeat("x|", 11) + "x", 12},
		{"single field", "no pipes here", 1},
		{"empty line", "", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLine(tc.line)
			if err == nil {
				t.Fatal("Expected error for wrong field count")
			}
			var mErr *MalformedLineError
			if !errors.As(err, &mErr) {
				t.Fatalf("Expected MalformedLineError, got %T: %v", err, err)
			}
			if mErr.FieldCount != tc.count {
				t.Errorf("Expected reported field count %d, got %d", tc.count, mErr.FieldCount)
			}
		})
	}
}

func TestParseLine_InvalidNumericFields(t *testing.T) {
	// Index of each numeric field within the 11-field line.
	tests := []struct {
		field string
		index int
		raw   string
	}{
		{"uid", 4, "abc"},
		{"gid", 5, "12.5"},
		{"size", 6, "-92"}, // size is unsigned
		{"atime", 7, "not-a-time"},
		{"mtime", 8, ""},
		{"ctime", 9, "0x10"},
		{"crtime", 10, "--1"},
	}

	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			fields := strings.Split(exampleLine, "|")
			fields[tc.index] = tc.raw
			line := strings.Join(fields, "|")

			_, err := ParseLine(line)
			if err == nil {
				t.Fatalf("Expected error for %s=%q", tc.field, tc.raw)
			}
			var fErr *InvalidFieldError
			if !errors.As(err, &fErr) {
				t.Fatalf("Expected InvalidFieldError, got %T: %v", err, err)
			}
			if fErr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, fErr.Field)
			}
			if fErr.Raw != tc.raw {
				t.Errorf("Expected raw %q, got %q", tc.raw, fErr.Raw)
			}
			var numErr *strconv.NumError
			if !errors.As(err, &numErr) {
				t.Errorf("Expected wrapped strconv.NumError, got %v", fErr.Err)
			}
		})
	}
}

func TestParseLine_NegativeTimestampSentinel(t *testing.T) {
	line := `0|/file|100|r/rrw-r--r--|0|0|50|1577092511|-1|-1|-1`
	l, err := ParseLine(line)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if l.Mtime != TimeUnknown || l.Ctime != TimeUnknown || l.Crtime != TimeUnknown {
		t.Errorf("Expected -1 sentinels, got %d/%d/%d", l.Mtime, l.Ctime, l.Crtime)
	}
	if got := l.String(); got != line {
		t.Errorf("Sentinel not preserved on re-format:\n in: %q\nout: %q", line, got)
	}
}

func TestString_NoTrailingNewline(t *testing.T) {
	l := NewLine().WithName("/tmp/x")
	if strings.ContainsAny(l.String(), "\n\r") {
		t.Errorf("Formatted line must not contain newline characters: %q", l.String())
	}
}

func TestNewLine_Defaults(t *testing.T) {
	l := NewLine()

	if l.MD5 != "0" {
		t.Errorf("Expected default MD5 '0', got %q", l.MD5)
	}
	if l.Name != "" {
		t.Errorf("Expected empty default Name, got %q", l.Name)
	}
	if l.Inode != "0" {
		t.Errorf("Expected default Inode '0', got %q", l.Inode)
	}
	if l.Mode != "" {
		t.Errorf("Expected empty default Mode, got %q", l.Mode)
	}
	if l.UID != 0 || l.GID != 0 || l.Size != 0 {
		t.Errorf("Expected zero UID/GID/Size, got %d/%d/%d", l.UID, l.GID, l.Size)
	}
	for name, v := range map[string]int64{"atime": l.Atime, "mtime": l.Mtime, "ctime": l.Ctime, "crtime": l.Crtime} {
		if v != TimeUnknown {
			t.Errorf("Expected default %s -1, got %d", name, v)
		}
	}

	if got, want := l.String(), "0||0||0|0|0|-1|-1|-1|-1"; got != want {
		t.Errorf("Expected default line %q, got %q", want, got)
	}
}

func TestLine_Builder(t *testing.T) {
	l := NewLine().
		WithMD5("d41d8cd98f00b204e9800998ecf8427e").
		WithName("/home/user/report.pdf").
		WithInode("483-128-1").
		WithMode("r/rrw-r--r--").
		WithUID(1000).
		WithGID(100).
		WithSize(4096).
		WithAtime(1577092511).
		WithMtime(1577092512).
		WithCtime(1577092513).
		WithCrtime(1577092514)

	want := `d41d8cd98f00b204e9800998ecf8427e|/home/user/report.pdf|483-128-1|r/rrw-r--r--|1000|100|4096|1577092511|1577092512|1577092513|1577092514`
	if got := l.String(); got != want {
		t.Errorf("Builder output mismatch:\ngot:  %q\nwant: %q", got, want)
	}

	back, err := ParseLine(l.String())
	if err != nil {
		t.Fatalf("Failed to re-parse built line: %v", err)
	}
	if *back != *l {
		t.Errorf("parse(format(r)) != r:\n%+v\n%+v", back, l)
	}
}

func TestParseLine_Independence(t *testing.T) {
	lines := []string{
		exampleLine,
		`0|/etc/passwd|12345|r/rrw-r--r--|0|0|1024|1577092511|1577092511|1577092511|1577092511`,
		`d41d8cd98f00b204e9800998ecf8427e|/empty|2|r/rrw-r--r--|1000|1000|0|1|1|1|1`,
		`0|/x|0||0|0|0|-1|-1|-1|-1`,
	}

	// Sequential baseline.
	want := make([]*Line, len(lines))
	for i, line := range lines {
		l, err := ParseLine(line)
		if err != nil {
			t.Fatalf("Failed to parse line %d: %v", i, err)
		}
		want[i] = l
	}

	// Parse the same lines from many goroutines in arbitrary order and
	// verify every result matches the sequential one.
	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				idx := (i + offset) % len(lines)
				l, err := ParseLine(lines[idx])
				if err != nil {
					errs <- err
					return
				}
				if *l != *want[idx] {
					errs <- errors.New("concurrent parse result differs from sequential parse")
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestValidateTimestamps(t *testing.T) {
	tests := []struct {
		name    string
		line    *Line
		wantErr bool
	}{
		{"all unknown", NewLine(), true},
		{"all zero", &Line{}, true},
		{"mix of zero and unknown", NewLine().WithAtime(0).WithMtime(-1), true},
		{"one real timestamp", NewLine().WithMtime(1577092511), false},
		{"crtime only", NewLine().WithCrtime(1), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTimestamps(tc.line)
			if tc.wantErr {
				if !errors.Is(err, ErrNoTimestamp) {
					t.Errorf("Expected ErrNoTimestamp, got %v", err)
				}
				if tc.line.HasTimestamp() {
					t.Error("HasTimestamp should be false")
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				if !tc.line.HasTimestamp() {
					t.Error("HasTimestamp should be true")
				}
			}
		})
	}
}

func TestParseLine_PipeInNameShiftsFields(t *testing.T) {
	// The format has no escaping: a pipe inside a filename produces extra
	// fields and the line is rejected on shape, never silently reinterpreted.
	line := `0|/weird|name.txt|12345|r/rrw-r--r--|0|0|10|1|1|1|1`
	_, err := ParseLine(line)
	var mErr *MalformedLineError
	if !errors.As(err, &mErr) {
		t.Fatalf("Expected MalformedLineError, got %v", err)
	}
	if mErr.FieldCount != 12 {
		t.Errorf("Expected field count 12, got %d", mErr.FieldCount)
	}
}
