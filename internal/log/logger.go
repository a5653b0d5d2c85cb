// Package log provides the dictation event journal.
// This file appends JSON events to events.jsonl in the data directory.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventSessionStarted     = "session_started"
	EventSegmentAdded       = "segment_added"
	EventAudioFallback      = "audio_fallback"
	EventRetranscribed      = "retranscribed"
	EventRetranscribeFailed = "retranscribe_failed"
	EventSessionRenamed     = "session_renamed"
	EventSessionDetached    = "session_detached"
	EventSessionResumed     = "session_resumed"
	EventSessionsPruned     = "sessions_pruned"
)

// FileName is the journal file name inside the data directory.
const FileName = "events.jsonl"

// LogEvent represents a single structured event written to the journal.
type LogEvent struct {
	Time      time.Time      `json:"time"`
	Event     string         `json:"event"`
	SessionID string         `json:"session,omitempty"`
	Segment   int            `json:"segment,omitempty"`
	Name      string         `json:"name,omitempty"`
	Audio     string         `json:"audio,omitempty"`
	Error     string         `json:"error,omitempty"`
	Chars     int            `json:"chars,omitempty"`
	Count     int            `json:"count,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Logger writes append-only JSONL events to a journal file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to events.jsonl inside dir.
// Creates dir if it does not already exist.
// Does not truncate an existing journal.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	return &Logger{
		path: filepath.Join(dir, FileName),
	}, nil
}

// Path returns the journal file path.
func (l *Logger) Path() string { return l.path }

// Append writes a single LogEvent as one JSON line to the journal.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
// The file is opened in append mode, written to, and then closed.
// Thread-safe via mutex.
func (l *Logger) Append(event LogEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}

	return nil
}

// ReadAll reads and parses all events from the journal.
// Returns an empty slice (not an error) if the file does not exist.
// A torn final line, left by a crash mid-append, is ignored.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	events := make([]LogEvent, 0, len(lines))
	for i, line := range lines {
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			if i == len(lines)-1 {
				break
			}
			return nil, fmt.Errorf("parse journal line %d: %w", i+1, err)
		}
		events = append(events, event)
	}

	return events, nil
}
