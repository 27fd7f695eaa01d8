package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLog(t *testing.T) (EventLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log, path
}

func TestEventLog_WriteAndRead(t *testing.T) {
	log, _ := newTestLog(t)

	events := []Event{
		{Time: time.Now(), Level: LevelInfo, Type: EventSessionSaved, Message: "saved", Data: map[string]any{"session_id": "s1"}},
		{Time: time.Now(), Level: LevelWarn, Type: EventBackupFailed, Message: "backup failed"},
		{Time: time.Now(), Level: LevelInfo, Type: EventSessionSaved, Message: "saved again"},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	all, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("read %d events, want 3", len(all))
	}

	saved, err := log.Read(EventFilter{Type: EventSessionSaved})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Errorf("type filter returned %d, want 2", len(saved))
	}

	warns, err := log.Read(EventFilter{Level: LevelWarn})
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 1 || warns[0].Message != "backup failed" {
		t.Errorf("level filter returned %+v", warns)
	}
}

func TestEventLog_TimeFilter(t *testing.T) {
	log, _ := newTestLog(t)

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := log.Write(Event{Time: base.Add(time.Duration(i) * time.Hour), Level: LevelInfo, Type: "t"}); err != nil {
			t.Fatal(err)
		}
	}

	since := base.Add(30 * time.Minute)
	until := base.Add(90 * time.Minute)
	got, err := log.Read(EventFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("window returned %d events, want 1", len(got))
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	log, path := newTestLog(t)

	if err := log.Write(Event{Time: time.Now(), Level: LevelInfo, Type: "ok"}); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("this is not json\n"); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	if err := log.Write(Event{Time: time.Now(), Level: LevelInfo, Type: "ok"}); err != nil {
		t.Fatal(err)
	}

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("read %d events, want 2 (malformed line skipped)", len(got))
	}
}

func TestEmit_NilLogIsNoOp(t *testing.T) {
	// Must not panic.
	Emit(nil, LevelInfo, EventSessionSaved, "msg", nil)
}

func TestEventLog_ReadMissingFile(t *testing.T) {
	log, path := newTestLog(t)
	_ = log.Close()
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil events, got %v", got)
	}
}
