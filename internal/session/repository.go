package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/scribe-dev/scribe/internal/fileio"
)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for non-fatal conditions such as an audio
// file that could not be moved into the session.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithClock overrides the time source for session ids and segment timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository stores one active dictation session at a time under a root
// directory and reads past sessions from it.
//
// A Repository does no locking. Mutating calls (AddSegment, RetranscribeLast,
// Rename, NewSession, Resume) must be serialized by the caller. Read calls
// (ListSessions, LoadAggregate, LoadIndex) only touch files that are written
// atomically and may run concurrently with a mutator.
type Repository struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
	ids    idGenerator

	// Active session; id == "" means idle.
	id     string
	dir    string
	index  Index
	nextID int
}

// NewRepository returns an idle repository rooted at root. Nothing is created
// on disk until the first segment is added.
func NewRepository(root string, opts ...Option) *Repository {
	r := &Repository{
		root:   root,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the directory holding all session directories.
func (r *Repository) Root() string { return r.root }

// SessionDir returns the directory for a session id.
func (r *Repository) SessionDir(id string) string {
	return filepath.Join(r.root, id)
}

// ActiveID returns the id of the active session, or "" when idle.
func (r *Repository) ActiveID() string { return r.id }

// Active returns a snapshot of the active session.
func (r *Repository) Active() (Session, bool) {
	if r.id == "" {
		return Session{}, false
	}
	segs := make([]Segment, len(r.index.Segments))
	copy(segs, r.index.Segments)
	return Session{
		ID:        r.id,
		Name:      r.index.Name,
		Dir:       r.dir,
		CreatedAt: r.index.CreatedAt,
		Segments:  segs,
	}, true
}

// AddSegment stores text and its audio as the next segment of the active
// session, starting a new session if the repository is idle.
//
// Empty (or whitespace-only) text is a no-op that returns the zero Segment and
// a nil error. The audio file is moved into the session; if the move fails the
// segment references the original path instead. Segment ids are allocated
// before any write and never reused, even when a later write fails.
func (r *Repository) AddSegment(text, audioPath string, duration float64) (Segment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Segment{}, nil
	}

	if r.id == "" {
		if err := r.start(); err != nil {
			return Segment{}, err
		}
	}

	id := r.nextID
	r.nextID++

	seg := Segment{
		ID:        id,
		Audio:     r.placeAudio(audioPath, id),
		Text:      TranscriptsDir + "/" + SegmentName(id) + ".txt",
		Timestamp: r.now().UTC(),
		Duration:  duration,
	}

	if err := fileio.AtomicWriteString(resolve(r.dir, seg.Text), text+"\n"); err != nil {
		return Segment{}, fmt.Errorf("writing %s text: %w", seg.Name(), err)
	}

	updated := r.index
	updated.Segments = append(append(make([]Segment, 0, len(r.index.Segments)+1), r.index.Segments...), seg)
	if err := writeIndex(r.dir, updated); err != nil {
		return Segment{}, fmt.Errorf("recording %s: %w", seg.Name(), err)
	}
	r.index = updated

	if err := RebuildAggregate(r.dir, r.index.Segments); err != nil {
		return seg, fmt.Errorf("%s recorded: %w", seg.Name(), err)
	}
	return seg, nil
}

// RetranscribeLast runs fn on the last segment's stored audio and replaces
// that segment's text with the result, then rebuilds the aggregate from the
// text files on disk.
//
// fn runs before anything is written. If it fails or returns no text, the
// error wraps ErrTranscription or is ErrEmptyTranscript, and every file of the
// session is left exactly as it was.
func (r *Repository) RetranscribeLast(fn TranscribeFunc) (string, error) {
	if r.id == "" || len(r.index.Segments) == 0 {
		return "", ErrNoSegments
	}
	last := r.index.Segments[len(r.index.Segments)-1]

	text, err := fn(resolve(r.dir, last.Audio))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	if err := fileio.AtomicWriteString(resolve(r.dir, last.Text), text+"\n"); err != nil {
		return "", fmt.Errorf("writing %s text: %w", last.Name(), err)
	}
	if err := RebuildAggregate(r.dir, r.index.Segments); err != nil {
		return "", err
	}
	return text, nil
}

// NewSession detaches from the active session without touching its files.
// The next AddSegment starts a fresh session.
func (r *Repository) NewSession() {
	r.id = ""
	r.dir = ""
	r.index = Index{}
	r.nextID = 0
}

// Resume makes an existing session the active one. The next segment id is
// one past the highest id seen in the index or among the stored artifacts.
func (r *Repository) Resume(id string) error {
	idx, err := r.LoadIndex(id)
	if err != nil {
		return err
	}
	dir := r.SessionDir(id)

	highest := 0
	for _, seg := range idx.Segments {
		highest = max(highest, seg.ID)
	}
	highest = max(highest, highestArtifactID(filepath.Join(dir, AudioDir)))
	highest = max(highest, highestArtifactID(filepath.Join(dir, TranscriptsDir)))

	if idx.Segments == nil {
		idx.Segments = []Segment{}
	}
	r.id = id
	r.dir = dir
	r.index = *idx
	r.nextID = highest + 1
	return nil
}

// Rename sets the active session's name and persists the index. The session
// directory keeps its id.
func (r *Repository) Rename(name string) error {
	if r.id == "" {
		return ErrNoActiveSession
	}
	updated := r.index
	updated.Name = strings.TrimSpace(name)
	if err := writeIndex(r.dir, updated); err != nil {
		return fmt.Errorf("renaming session: %w", err)
	}
	r.index = updated
	return nil
}

// ListSessions returns the ids of stored sessions in chronological order,
// optionally keeping only ids that contain filter (case-insensitive).
// Directories without a readable index are skipped.
func (r *Repository) ListSessions(filter string) ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	filter = strings.ToLower(filter)
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !ValidID(name) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		if _, err := r.LoadIndex(name); err != nil {
			r.logger.Debug("skipping session without usable index", "session", name, "error", err)
			continue
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadAggregate returns the aggregate transcript of a stored session.
// ErrSessionNotFound is returned when there is none.
func (r *Repository) LoadAggregate(id string) (string, error) {
	if !ValidID(id) {
		return "", ErrInvalidID
	}
	data, err := os.ReadFile(filepath.Join(r.SessionDir(id), AggregateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return "", fmt.Errorf("reading aggregate: %w", err)
	}
	return string(data), nil
}

// LoadIndex reads a stored session's metadata index.
func (r *Repository) LoadIndex(id string) (*Index, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	data, err := os.ReadFile(filepath.Join(r.SessionDir(id), IndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing index of %s: %w", id, err)
	}
	return &idx, nil
}

// start creates the directory, empty index and empty aggregate for a new
// session and makes it active. A half-created directory is removed.
func (r *Repository) start() error {
	id, err := r.ids.next(r.root, r.now())
	if err != nil {
		return err
	}
	created, err := ParseID(id)
	if err != nil {
		return err
	}
	dir := r.SessionDir(id)

	idx := Index{CreatedAt: created, Segments: []Segment{}}
	err = func() error {
		for _, sub := range []string{AudioDir, TranscriptsDir} {
			if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
				return fmt.Errorf("creating session directory: %w", err)
			}
		}
		if err := writeIndex(dir, idx); err != nil {
			return err
		}
		if err := fileio.AtomicWriteString(filepath.Join(dir, AggregateFile), ""); err != nil {
			return fmt.Errorf("writing aggregate: %w", err)
		}
		return nil
	}()
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			r.logger.Warn("failed to remove incomplete session", "session", id, "error", rmErr)
		}
		return err
	}

	r.id = id
	r.dir = dir
	r.index = idx
	r.nextID = 1
	return nil
}

// placeAudio moves the source audio into the session's audio directory and
// returns the reference to record. When the move is impossible the original
// absolute path is recorded instead.
func (r *Repository) placeAudio(src string, id int) string {
	if src == "" {
		return ""
	}
	ext := filepath.Ext(src)
	if ext == "" {
		ext = ".wav"
	}
	ref := AudioDir + "/" + SegmentName(id) + ext
	dest := resolve(r.dir, ref)

	if same, _ := samePath(src, dest); same {
		return ref
	}
	if err := os.Rename(src, dest); err != nil {
		abs, absErr := filepath.Abs(src)
		if absErr != nil {
			abs = src
		}
		r.logger.Warn("audio left at original location",
			"session", r.id, "segment", SegmentName(id), "path", abs, "error", err)
		return abs
	}
	return ref
}

func writeIndex(dir string, idx Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := fileio.AtomicWriteFile(filepath.Join(dir, IndexFile), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// highestArtifactID returns the largest segment id among "segNNN.*" files in
// dir, or 0.
func highestArtifactID(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Debug("scanning artifacts", "dir", dir, "error", err)
		}
		return 0
	}
	highest := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "seg") {
			continue
		}
		stem := strings.TrimPrefix(name, "seg")
		if dot := strings.IndexByte(stem, '.'); dot >= 0 {
			stem = stem[:dot]
		}
		n, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest
}
