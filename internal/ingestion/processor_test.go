package ingestion

import (
	"sync"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"timelynx/internal/database/models"
	"timelynx/internal/parser"
)

type stubEntryRepo struct {
	mu      sync.Mutex
	entries []*models.TimelineEntry
}

func (s *stubEntryRepo) Create(entry *models.TimelineEntry) error { return s.CreateBatch([]*models.TimelineEntry{entry}) }
func (s *stubEntryRepo) CreateBatch(entries []*models.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}
func (s *stubEntryRepo) FindByID(id uint) (*models.TimelineEntry, error) { return nil, nil }
func (s *stubEntryRepo) FindRecent(limit int, offset int, sourceName string) ([]*models.TimelineEntry, error) {
	return nil, nil
}
func (s *stubEntryRepo) FindByTimeRange(clock string, start, end int64, limit int) ([]*models.TimelineEntry, error) {
	return nil, nil
}
func (s *stubEntryRepo) Count() (int64, error)                           { return 0, nil }
func (s *stubEntryRepo) CountBySourceName(name string) (int64, error)    { return 0, nil }

type stubSourceRepo struct{}

func (s *stubSourceRepo) Create(source *models.BodyfileSource) error          { return nil }
func (s *stubSourceRepo) FindByName(name string) (*models.BodyfileSource, error) { return nil, nil }
func (s *stubSourceRepo) FindAll() ([]*models.BodyfileSource, error)          { return nil, nil }
func (s *stubSourceRepo) Update(source *models.BodyfileSource) error          { return nil }
func (s *stubSourceRepo) UpdateTracking(name string, position int64, inode int64, lastLine string) error {
	return nil
}

func newTestProcessor(t *testing.T) (*SourceProcessor, *stubEntryRepo) {
	t.Helper()
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)

	source := &models.BodyfileSource{
		Name:       "bodyfile-test",
		Path:       "/nonexistent/bodyfile.txt",
		ParserType: "bodyfile",
	}

	entryRepo := &stubEntryRepo{}
	sp, err := NewSourceProcessor(
		source,
		parser.NewRegistry(logger),
		entryRepo,
		&stubSourceRepo{},
		ProcessorConfig{PollInterval: time.Second, BatchSize: 100, WorkerCount: 4},
		nil,
		logger,
	)
	if err != nil {
		t.Fatalf("NewSourceProcessor failed: %v", err)
	}
	return sp, entryRepo
}

func TestParseParallel_OrderAndSkipping(t *testing.T) {
	sp, _ := newTestProcessor(t)

	lines := []string{
		"0|/a|1|r/rrwxrwxrwx|0|0|10|1|1|1|-1",
		"not a bodyfile line at all",
		"0|/b|2|r/rrwxrwxrwx|0|0|20|2|2|2|-1",
		"md5|/c|3|r/rrwxrwxrwx|nope|0|30|3|3|3|-1", // bad uid
		"0|/d|4|r/rrwxrwxrwx|0|0|40|4|4|4|-1",
	}

	entries := sp.parseParallel(lines)

	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries (2 bad lines skipped), got %d", len(entries))
	}
	wantNames := []string{"/a", "/b", "/d"}
	for i, want := range wantNames {
		if entries[i].Name != want {
			t.Errorf("Entry %d: expected name %q, got %q", i, want, entries[i].Name)
		}
	}
}

func TestToEntry_HashIsStablePerSource(t *testing.T) {
	sp, _ := newTestProcessor(t)

	entries := sp.parseParallel([]string{
		"0|/same|1|r/rrwxrwxrwx|0|0|10|1|1|1|-1",
		"0|/same|1|r/rrwxrwxrwx|0|0|10|1|1|1|-1",
	})

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].LineHash != entries[1].LineHash {
		t.Error("Identical lines from the same source must hash identically")
	}
	if len(entries[0].LineHash) != 64 {
		t.Errorf("Expected 64-char hex sha256, got %d chars", len(entries[0].LineHash))
	}
	if entries[0].SourceName != "bodyfile-test" {
		t.Errorf("Expected source name 'bodyfile-test', got %q", entries[0].SourceName)
	}
}

func TestToEntry_FieldMapping(t *testing.T) {
	sp, _ := newTestProcessor(t)

	entries := sp.parseParallel([]string{
		"d41d8cd98f00b204e9800998ecf8427e|/etc/passwd|1234-128-1|r/rrw-r--r--|0|500|2137|1577092511|1577092512|1577092513|-1",
	})
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.MD5 != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("MD5 mismatch: %q", e.MD5)
	}
	if e.Name != "/etc/passwd" || e.Inode != "1234-128-1" || e.Mode != "r/rrw-r--r--" {
		t.Errorf("Identity fields mismatch: %+v", e)
	}
	if e.UID != 0 || e.GID != 500 || e.Size != 2137 {
		t.Errorf("Numeric fields mismatch: uid=%d gid=%d size=%d", e.UID, e.GID, e.Size)
	}
	if e.Atime != 1577092511 || e.Mtime != 1577092512 || e.Ctime != 1577092513 || e.Crtime != -1 {
		t.Errorf("Timestamp fields mismatch: %+v", e)
	}
}
