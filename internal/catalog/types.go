// Package catalog keeps a SQLite index of stored sessions for search.
// It is a cache: every row can be rebuilt from the session metadata indexes.
package catalog

import (
	"strings"
	"time"

	"github.com/scribe-dev/scribe/internal/session"
)

// previewRunes is the maximum length of Summary.Preview.
const previewRunes = 120

// Summary describes one session for listing and search.
type Summary struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	SegmentCount int
	Preview      string
	Transcript   string
	UpdatedAt    time.Time
}

// FromIndex builds a Summary from a session's index and aggregate transcript.
func FromIndex(id string, idx *session.Index, aggregate string) Summary {
	return Summary{
		ID:           id,
		Name:         idx.Name,
		CreatedAt:    idx.CreatedAt,
		SegmentCount: len(idx.Segments),
		Preview:      preview(aggregate),
		Transcript:   aggregate,
	}
}

func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= previewRunes {
		return flat
	}
	return string(r[:previewRunes-1]) + "…"
}
