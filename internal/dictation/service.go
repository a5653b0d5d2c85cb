// Package dictation is the application layer of scribe. It owns the session
// repository and runs every mutation on a single worker, then keeps the event
// journal and the search catalog in step with what was stored.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribe-dev/scribe/internal/catalog"
	"github.com/scribe-dev/scribe/internal/cleanup"
	"github.com/scribe-dev/scribe/internal/log"
	"github.com/scribe-dev/scribe/internal/session"
	"github.com/scribe-dev/scribe/internal/transcribe"
	"github.com/scribe-dev/scribe/internal/worker"
)

// ErrNoCatalog is returned by Reindex when the service runs without a catalog.
var ErrNoCatalog = errors.New("session catalog is disabled")

// Options carries the optional collaborators of a Service.
type Options struct {
	Journal *log.Logger    // nil disables the event journal
	Catalog *catalog.Store // nil disables catalog updates; Search falls back to a scan
	Logger  *slog.Logger
	Backlog int // pending mutations buffered by the worker; default 16
}

// Service serializes dictation operations over one session repository.
type Service struct {
	repo    *session.Repository
	model   transcribe.Transcriber
	queue   *worker.Queue
	journal *log.Logger
	catalog *catalog.Store
	logger  *slog.Logger
}

// Result is the outcome of Transcribe.
type Result struct {
	Text    string
	Segment session.Segment // zero unless the text was stored
	Saved   bool
}

// New starts a Service. Close must be called to stop its worker.
func New(repo *session.Repository, model transcribe.Transcriber, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = 16
	}
	return &Service{
		repo:    repo,
		model:   model,
		queue:   worker.NewQueue(backlog, logger),
		journal: opts.Journal,
		catalog: opts.Catalog,
		logger:  logger,
	}
}

// Close waits for queued mutations to finish and stops the worker. It does
// not close the catalog.
func (s *Service) Close() {
	s.queue.Close()
}

// Transcribe runs the model on audioPath. When save is true a non-empty
// result is stored as the next segment of the active session; otherwise the
// store is not touched. The model runs outside the worker so reads and other
// sessions' exports are not blocked by inference.
func (s *Service) Transcribe(ctx context.Context, audioPath string, duration float64, save bool) (Result, error) {
	if s.model == nil {
		return Result{}, fmt.Errorf("%w: no transcriber configured", session.ErrTranscription)
	}
	text, err := s.model.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", session.ErrTranscription, err)
	}
	res := Result{Text: strings.TrimSpace(text)}
	if !save || res.Text == "" {
		return res, nil
	}

	seg, err := s.AddText(ctx, res.Text, audioPath, duration)
	res.Segment = seg
	res.Saved = seg.ID != 0
	return res, err
}

// AddText stores already transcribed text as the next segment. Empty text is
// a no-op returning the zero Segment.
func (s *Service) AddText(ctx context.Context, text, audioPath string, duration float64) (session.Segment, error) {
	var seg session.Segment
	err := s.queue.Do(ctx, "add-segment", func(context.Context) error {
		before := s.repo.ActiveID()
		var addErr error
		seg, addErr = s.repo.AddSegment(text, audioPath, duration)
		id := s.repo.ActiveID()

		if id != "" && id != before {
			s.record(log.LogEvent{Event: log.EventSessionStarted, SessionID: id})
		}
		if seg.ID != 0 {
			s.record(log.LogEvent{
				Event:     log.EventSegmentAdded,
				SessionID: id,
				Segment:   seg.ID,
				Audio:     seg.Audio,
				Chars:     len(strings.TrimSpace(text)),
			})
			if filepath.IsAbs(seg.Audio) {
				s.record(log.LogEvent{Event: log.EventAudioFallback, SessionID: id, Segment: seg.ID, Audio: seg.Audio})
			}
			s.refresh(id)
		}
		return addErr
	})
	return seg, err
}

// Retranscribe re-runs the model on the last segment of the active session.
// On failure nothing on disk changes.
func (s *Service) Retranscribe(ctx context.Context) (string, error) {
	if s.model == nil {
		return "", fmt.Errorf("%w: no transcriber configured", session.ErrTranscription)
	}
	var text string
	err := s.queue.Do(ctx, "retranscribe", func(ctx context.Context) error {
		var rtErr error
		text, rtErr = s.repo.RetranscribeLast(transcribe.Bind(ctx, s.model))
		id := s.repo.ActiveID()
		if rtErr != nil {
			if !errors.Is(rtErr, session.ErrNoSegments) {
				s.record(log.LogEvent{Event: log.EventRetranscribeFailed, SessionID: id, Error: rtErr.Error()})
			}
			return rtErr
		}
		active, _ := s.repo.Active()
		last, _ := active.LastSegment()
		s.record(log.LogEvent{Event: log.EventRetranscribed, SessionID: id, Segment: last.ID, Chars: len(text)})
		s.refresh(id)
		return nil
	})
	return text, err
}

// Rename names the active session.
func (s *Service) Rename(ctx context.Context, name string) error {
	return s.queue.Do(ctx, "rename", func(context.Context) error {
		if err := s.repo.Rename(name); err != nil {
			return err
		}
		id := s.repo.ActiveID()
		s.record(log.LogEvent{Event: log.EventSessionRenamed, SessionID: id, Name: strings.TrimSpace(name)})
		s.refresh(id)
		return nil
	})
}

// NewSession detaches from the active session; the next segment starts a
// fresh one. Detaching while idle is a no-op.
func (s *Service) NewSession(ctx context.Context) error {
	return s.queue.Do(ctx, "new-session", func(context.Context) error {
		prev := s.repo.ActiveID()
		s.repo.NewSession()
		if prev != "" {
			s.record(log.LogEvent{Event: log.EventSessionDetached, SessionID: prev})
		}
		return nil
	})
}

// Resume makes a stored session the active one.
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.queue.Do(ctx, "resume", func(context.Context) error {
		if s.repo.ActiveID() == id {
			return nil
		}
		if err := s.repo.Resume(id); err != nil {
			return err
		}
		s.record(log.LogEvent{Event: log.EventSessionResumed, SessionID: id})
		return nil
	})
}

// Active returns a snapshot of the active session.
func (s *Service) Active(ctx context.Context) (session.Session, bool, error) {
	var (
		sess session.Session
		ok   bool
	)
	err := s.queue.Do(ctx, "active", func(context.Context) error {
		sess, ok = s.repo.Active()
		return nil
	})
	return sess, ok, err
}

// Prune removes stored sessions selected by p. The active session is always
// protected. Catalog rows of removed sessions are deleted.
func (s *Service) Prune(ctx context.Context, p cleanup.Policy, now time.Time) ([]string, error) {
	var pruned []string
	err := s.queue.Do(ctx, "prune", func(context.Context) error {
		if id := s.repo.ActiveID(); id != "" {
			p.Protect = append(append([]string(nil), p.Protect...), id)
		}
		var pruneErr error
		pruned, pruneErr = cleanup.Prune(s.repo.Root(), p, now)
		if p.DryRun || len(pruned) == 0 {
			return pruneErr
		}
		if s.catalog != nil {
			for _, id := range pruned {
				if err := s.catalog.Delete(id); err != nil {
					s.logger.Warn("catalog delete failed", "session", id, "error", err)
				}
			}
		}
		s.record(log.LogEvent{
			Event: log.EventSessionsPruned,
			Count: len(pruned),
			Data:  map[string]any{"sessions": pruned},
		})
		return pruneErr
	})
	return pruned, err
}

// List returns stored session ids, oldest first, optionally filtered by a
// case-insensitive substring of the id.
func (s *Service) List(filter string) ([]string, error) {
	return s.repo.ListSessions(filter)
}

// Load returns a stored session's aggregate transcript.
func (s *Service) Load(id string) (string, error) {
	return s.repo.LoadAggregate(id)
}

// Index returns a stored session's metadata index.
func (s *Service) Index(id string) (*session.Index, error) {
	return s.repo.LoadIndex(id)
}

// Repository exposes the underlying store for read-only helpers such as
// export.
func (s *Service) Repository() *session.Repository {
	return s.repo
}

// Search finds sessions whose id, name or transcript contains query. It uses
// the catalog when available and scans the session directories otherwise.
func (s *Service) Search(query string, limit int) ([]catalog.Summary, error) {
	if s.catalog != nil {
		return s.catalog.Search(query, limit)
	}

	summaries, err := s.summaries()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []catalog.Summary
	for _, sum := range summaries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if q == "" ||
			strings.Contains(strings.ToLower(sum.ID), q) ||
			strings.Contains(strings.ToLower(sum.Name), q) ||
			strings.Contains(strings.ToLower(sum.Transcript), q) {
			out = append(out, sum)
		}
	}
	return out, nil
}

// Reindex rebuilds the catalog from the session directories and returns the
// number of sessions indexed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.catalog == nil {
		return 0, ErrNoCatalog
	}
	var n int
	err := s.queue.Do(ctx, "reindex", func(context.Context) error {
		summaries, err := s.summaries()
		if err != nil {
			return err
		}
		if err := s.catalog.Rebuild(summaries); err != nil {
			return err
		}
		n = len(summaries)
		return nil
	})
	return n, err
}

// summaries builds a catalog summary for every stored session.
func (s *Service) summaries() ([]catalog.Summary, error) {
	ids, err := s.repo.ListSessions("")
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		sum, err := s.summary(id)
		if err != nil {
			s.logger.Warn("skipping session", "session", id, "error", err)
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Service) summary(id string) (catalog.Summary, error) {
	idx, err := s.repo.LoadIndex(id)
	if err != nil {
		return catalog.Summary{}, err
	}
	aggregate, err := s.repo.LoadAggregate(id)
	if err != nil {
		return catalog.Summary{}, err
	}
	return catalog.FromIndex(id, idx, aggregate), nil
}

// refresh updates the catalog row of session id. Failures are logged only;
// the catalog can always be rebuilt.
func (s *Service) refresh(id string) {
	if s.catalog == nil || id == "" {
		return
	}
	sum, err := s.summary(id)
	if err == nil {
		err = s.catalog.Upsert(sum)
	}
	if err != nil {
		s.logger.Warn("catalog update failed", "session", id, "error", err)
	}
}

// record appends ev to the journal. Failures are logged only.
func (s *Service) record(ev log.LogEvent) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ev); err != nil {
		s.logger.Warn("journal append failed", "event", ev.Event, "error", err)
	}
}
