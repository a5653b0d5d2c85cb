// Package report renders stored dictation sessions for export.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribe-dev/scribe/internal/fileio"
	"github.com/scribe-dev/scribe/internal/session"
)

// Format selects the export rendering.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts "txt"/"text" and "md"/"markdown".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q (want txt or md)", s)
}

// Entry is one segment with its current text.
type Entry struct {
	Segment session.Segment
	Text    string
}

// Report holds everything needed to render one session.
type Report struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Entries   []Entry
	Aggregate string
	Duration  time.Duration
}

// Loader is the read side of a session store.
type Loader interface {
	SessionDir(id string) string
	LoadIndex(id string) (*session.Index, error)
	LoadAggregate(id string) (string, error)
}

// GenerateReport gathers a stored session's index, segment texts and
// aggregate transcript.
func GenerateReport(store Loader, id string) (*Report, error) {
	idx, err := store.LoadIndex(id)
	if err != nil {
		return nil, err
	}
	texts, err := session.ReadSegmentTexts(store.SessionDir(id), idx.Segments)
	if err != nil {
		return nil, err
	}
	aggregate, err := store.LoadAggregate(id)
	if err != nil {
		return nil, err
	}

	r := &Report{
		ID:        id,
		Name:      idx.Name,
		CreatedAt: idx.CreatedAt,
		Aggregate: aggregate,
	}
	var total float64
	for i, seg := range idx.Segments {
		r.Entries = append(r.Entries, Entry{Segment: seg, Text: strings.TrimSpace(texts[i])})
		total += seg.Duration
	}
	r.Duration = time.Duration(total * float64(time.Second))
	return r, nil
}

// Title returns the session name, or a title derived from its id.
func (r *Report) Title() string {
	if r.Name != "" {
		return r.Name
	}
	return "Session " + r.ID
}

// Render formats r in the given format.
func Render(r *Report, f Format) (string, error) {
	switch f {
	case FormatText:
		return r.Aggregate, nil
	case FormatMarkdown:
		return FormatMarkdownReport(r), nil
	}
	return "", fmt.Errorf("unknown export format %q", f)
}

// FormatMarkdownReport produces a markdown document with one section per
// segment.
func FormatMarkdownReport(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title())
	fmt.Fprintf(&b, "- Session: `%s`\n", r.ID)
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Created: %s\n", r.CreatedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Segments: %d\n", len(r.Entries))
	if r.Duration > 0 {
		fmt.Fprintf(&b, "- Audio: %s\n", formatDuration(r.Duration))
	}

	for _, e := range r.Entries {
		fmt.Fprintf(&b, "\n## Segment %d", e.Segment.ID)
		var meta []string
		if !e.Segment.Timestamp.IsZero() {
			meta = append(meta, e.Segment.Timestamp.UTC().Format("15:04:05"))
		}
		if e.Segment.Duration > 0 {
			meta = append(meta, fmt.Sprintf("%.1fs", e.Segment.Duration))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(meta, ", "))
		}
		b.WriteString("\n\n")
		b.WriteString(e.Text)
		b.WriteString("\n")
	}

	return b.String()
}

// WriteReport renders r and writes it atomically to path, creating the
// parent directory if it does not exist.
func WriteReport(path string, r *Report, f Format) error {
	content, err := Render(r, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	if err := fileio.AtomicWriteString(path, content); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm%ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
