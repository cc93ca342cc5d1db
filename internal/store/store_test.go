package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/meetingmind/platform/internal/insight"
	"github.com/meetingmind/platform/internal/session"
	"github.com/meetingmind/platform/internal/transcribe"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord() *session.Record {
	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	return &session.Record{
		Session: session.Session{
			ID:        "sess-1",
			State:     session.StateCompleted,
			StartedAt: started,
			EndedAt:   started.Add(30 * time.Minute),
		},
		Transcript: "hello world this was the meeting",
		Segments: []transcribe.Segment{
			{Text: "hello world", Start: 0, End: 2 * time.Second, Final: true},
			{Text: "this was the meeting", Start: 2 * time.Second, End: 5 * time.Second, Final: true},
		},
		Insights: insight.Bundle{
			MeetingInsights: []string{"short meeting"},
			GeneratedAt:     started.Add(30 * time.Minute),
		},
	}
}

func TestSaveAndReadBack(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveCompleted(testRecord()); err != nil {
		t.Fatalf("SaveCompleted: %v", err)
	}

	text, err := s.Transcript("sess-1")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if text != "hello world this was the meeting" {
		t.Errorf("transcript = %q", text)
	}

	segs, err := s.Segments("sess-1")
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[1].Text != "this was the meeting" || segs[1].Start != 2*time.Second {
		t.Errorf("segment 1 = %+v", segs[1])
	}
}

func TestRecentSessionsOrder(t *testing.T) {
	s := openTestStore(t)

	first := testRecord()
	second := testRecord()
	second.Session.ID = "sess-2"
	second.Session.StartedAt = first.Session.StartedAt.Add(time.Hour)
	second.Session.EndedAt = second.Session.StartedAt.Add(10 * time.Minute)

	if err := s.SaveCompleted(first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCompleted(second); err != nil {
		t.Fatal(err)
	}

	sums, err := s.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("got %d sessions", len(sums))
	}
	if sums[0].ID != "sess-2" {
		t.Errorf("newest session first, got %q", sums[0].ID)
	}
}

func TestDuplicateSaveRejected(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveCompleted(testRecord()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCompleted(testRecord()); err == nil {
		t.Error("saving the same session twice should fail")
	}
}
