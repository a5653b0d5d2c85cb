package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	if err := l.Append(LogEvent{Event: EventSessionStarted, SessionID: "20250314-092653"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(LogEvent{Event: EventSegmentAdded, SessionID: "20250314-092653", Segment: 1, Chars: 5}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Event != EventSessionStarted {
		t.Errorf("events[0].Event = %q, want %q", events[0].Event, EventSessionStarted)
	}
	if events[1].Segment != 1 || events[1].Chars != 5 {
		t.Errorf("events[1] = %+v", events[1])
	}
	if events[0].Time.IsZero() {
		t.Error("Time should be set by Append")
	}
}

func TestReadAllMissingFile(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestReadAllIgnoresTornTail(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Append(LogEvent{Event: EventSegmentAdded}); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"event":"segm`)
	f.Close()

	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}

func TestReadAllCorruptMiddleLine(t *testing.T) {
	dir := t.TempDir()
	content := "{\"event\":\"a\"}\nnot json\n{\"event\":\"b\"}\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.ReadAll(); err == nil {
		t.Error("expected error for corrupt line in the middle")
	}
}

func TestAppendConcurrent(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := l.Append(LogEvent{Event: EventSegmentAdded, Segment: i + 1}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	events, err := l.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 50 {
		t.Errorf("got %d events, want 50", len(events))
	}
}
