package repositories

import (
	"testing"

	"timelynx/internal/database/models"
)

func TestGetSummary_FollowsRequestedClock(t *testing.T) {
	db := openTestDB(t)
	statsRepo := NewStatsRepository(db, testLogger())
	entryRepo := NewTimelineEntryRepository(db, testLogger())

	// mtime and crtime ranges deliberately disjoint so the queried clock is
	// visible in the earliest/latest bounds.
	entries := []*models.TimelineEntry{makeEntry(0), makeEntry(1), makeEntry(2)}
	for i, e := range entries {
		e.Mtime = 1000 + int64(i)
		e.Crtime = 5000 + int64(i)
	}
	if err := entryRepo.CreateBatch(entries); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	byMtime, err := statsRepo.GetSummary("mtime")
	if err != nil {
		t.Fatalf("GetSummary(mtime) failed: %v", err)
	}
	if byMtime.EarliestActivity != 1000 || byMtime.LatestActivity != 1002 {
		t.Errorf("Expected mtime range [1000, 1002], got [%d, %d]",
			byMtime.EarliestActivity, byMtime.LatestActivity)
	}

	byCrtime, err := statsRepo.GetSummary("crtime")
	if err != nil {
		t.Fatalf("GetSummary(crtime) failed: %v", err)
	}
	if byCrtime.EarliestActivity != 5000 || byCrtime.LatestActivity != 5002 {
		t.Errorf("Expected crtime range [5000, 5002], got [%d, %d]",
			byCrtime.EarliestActivity, byCrtime.LatestActivity)
	}

	// Empty clock defaults to mtime, matching the other timeline queries.
	byDefault, err := statsRepo.GetSummary("")
	if err != nil {
		t.Fatalf("GetSummary with default clock failed: %v", err)
	}
	if byDefault.EarliestActivity != byMtime.EarliestActivity {
		t.Errorf("Default clock should be mtime, got earliest %d", byDefault.EarliestActivity)
	}

	if _, err := statsRepo.GetSummary("btime"); err == nil {
		t.Error("Expected an error for an unknown clock name")
	}
}
