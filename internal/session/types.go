// Package session persists dictation sessions as directories of segment
// artifacts plus a metadata index, and keeps the aggregate transcript derived
// from them.
package session

import (
	"errors"
	"fmt"
	"time"
)

// On-disk names inside a session directory.
const (
	IndexFile      = "segments.json"
	AggregateFile  = "transcript_full.txt"
	AudioDir       = "audio"
	TranscriptsDir = "transcripts"
)

// Sentinel errors.
var (
	ErrNoActiveSession = errors.New("session: no active session")
	ErrNoSegments      = errors.New("session: no segments to retranscribe")
	ErrSessionNotFound = errors.New("session: not found")
	ErrInvalidID       = errors.New("session: invalid session id")
	ErrTranscription   = errors.New("session: transcription failed")
	ErrEmptyTranscript = errors.New("session: transcription returned no text")
)

// TranscribeFunc turns a stored audio file into text. It is supplied by the
// caller; cancellation belongs to whatever context the caller closes over.
type TranscribeFunc func(audioPath string) (string, error)

// Segment describes one recorded-and-transcribed utterance.
type Segment struct {
	ID        int       `json:"id"`
	Audio     string    `json:"audio"` // relative to the session dir, or absolute on move fallback
	Text      string    `json:"text"`  // relative to the session dir
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration"`
}

// Name returns the zero-padded artifact stem, e.g. "seg003".
func (s Segment) Name() string {
	return SegmentName(s.ID)
}

// SegmentName returns the artifact stem for a segment id.
func SegmentName(id int) string {
	return fmt.Sprintf("seg%03d", id)
}

// Index is the metadata record persisted as segments.json. It is the source
// of truth for reconstructing a session.
type Index struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name,omitempty"`
	Segments  []Segment `json:"segments"`
}

// Session is a read-only view of a session.
type Session struct {
	ID        string
	Name      string
	Dir       string
	CreatedAt time.Time
	Segments  []Segment
}

// LastSegment returns the most recent segment, if any.
func (s Session) LastSegment() (Segment, bool) {
	if len(s.Segments) == 0 {
		return Segment{}, false
	}
	return s.Segments[len(s.Segments)-1], true
}
