package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history", "snapkeys.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetAttempts(t *testing.T) {
	db := openTemp(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	for i := 0; i < 5; i++ {
		a := &Attempt{
			ID:         fmt.Sprintf("id-%d", i),
			Started:    base.Add(time.Duration(i) * time.Minute),
			DurationMs: int64(100 * i),
			Mode:       "record",
			Status:     "recorded",
			Key:        "A",
			BlobSize:   10 + i,
		}
		if err := db.SaveAttempt(a); err != nil {
			t.Fatalf("SaveAttempt(%d): %v", i, err)
		}
	}

	count, err := db.GetAttemptCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}

	page, err := db.GetAttempts(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d attempts, want 2", len(page))
	}
	if page[0].ID != "id-3" || page[1].ID != "id-2" {
		t.Errorf("page = %s, %s; want id-3, id-2 (newest first)", page[0].ID, page[1].ID)
	}
	if !page[0].Started.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("Started = %v, want %v", page[0].Started, base.Add(3*time.Minute))
	}
	if page[0].BlobSize != 13 || page[0].DurationMs != 300 {
		t.Errorf("got %+v", page[0])
	}
}

func TestGetAttemptsEmpty(t *testing.T) {
	db := openTemp(t)
	got, err := db.GetAttempts(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestErrorMessageRoundTrip(t *testing.T) {
	db := openTemp(t)
	if err := db.SaveAttempt(&Attempt{ID: "x", Started: time.Now(), Mode: "playback", Status: "failed", Key: "C", ErrorMessage: "clipboard busy"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveAttempt(&Attempt{ID: "y", Started: time.Now(), Mode: "playback", Status: "timeout"}); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetAttempts(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	msgs := map[string]string{}
	for _, a := range got {
		msgs[a.ID] = a.ErrorMessage
	}
	if msgs["x"] != "clipboard busy" || msgs["y"] != "" {
		t.Errorf("error messages = %v", msgs)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	db := openTemp(t)
	a := &Attempt{ID: "dup", Started: time.Now(), Mode: "record", Status: "timeout"}
	if err := db.SaveAttempt(a); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveAttempt(a); err == nil {
		t.Error("second save with the same id should fail")
	}
}

func TestStats(t *testing.T) {
	db := openTemp(t)
	now := time.Now()
	rows := []Attempt{
		{ID: "1", Started: now.Add(-3 * time.Minute), DurationMs: 100, Mode: "record", Status: "recorded", Key: "A", BlobSize: 100},
		{ID: "2", Started: now.Add(-2 * time.Minute), DurationMs: 200, Mode: "playback", Status: "played", Key: "A", BlobSize: 100},
		{ID: "3", Started: now.Add(-1 * time.Minute), DurationMs: 300, Mode: "playback", Status: "failed", Key: "B"},
		{ID: "4", Started: now, DurationMs: 400, Mode: "record", Status: "timeout"},
		// Outside the stats window.
		{ID: "5", Started: now.AddDate(0, 0, -30), DurationMs: 1000, Mode: "record", Status: "recorded", Key: "C", BlobSize: 5000},
	}
	for i := range rows {
		if err := db.SaveAttempt(&rows[i]); err != nil {
			t.Fatal(err)
		}
	}

	overall, err := db.GetOverallStats(7)
	if err != nil {
		t.Fatal(err)
	}
	want := OverallStats{
		TotalAttempts:   4,
		RecordCount:     1,
		PlaybackCount:   1,
		FailureCount:    1,
		TimeoutCount:    1,
		AvgDurationMs:   250,
		TotalBytesSaved: 100,
	}
	if *overall != want {
		t.Errorf("overall = %+v, want %+v", *overall, want)
	}

	keys, err := db.GetKeyStats()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 {
		t.Fatalf("got %d key rows, want 3 (A, B, C): %+v", len(keys), keys)
	}
	a := keys[0]
	if a.Key != "A" || a.Records != 1 || a.Playbacks != 1 || a.Failures != 0 {
		t.Errorf("A = %+v", a)
	}
	if keys[1].Key != "B" || keys[1].Failures != 1 {
		t.Errorf("B = %+v", keys[1])
	}
	if !a.LastUsed.Equal(time.UnixMilli(rows[1].Started.UnixMilli())) {
		t.Errorf("A.LastUsed = %v, want %v", a.LastUsed, rows[1].Started)
	}
}

func TestStatsEmpty(t *testing.T) {
	db := openTemp(t)
	overall, err := db.GetOverallStats(7)
	if err != nil {
		t.Fatal(err)
	}
	if *overall != (OverallStats{}) {
		t.Errorf("overall = %+v, want zero", *overall)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveAttempt(&Attempt{ID: "keep", Started: time.Now(), Mode: "record", Status: "recorded", Key: "Q"}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	n, err := db.GetAttemptCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count after reopen = %d, want 1", n)
	}
}
