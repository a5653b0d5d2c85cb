// Package cleanup implements pruning of old dictation session directories.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/scribe-dev/scribe/internal/session"
)

// Policy selects which sessions Prune removes. A session is removed when it
// is older than MaxAgeDays or falls outside the KeepRecent newest sessions.
// Zero disables the corresponding rule.
type Policy struct {
	MaxAgeDays int
	KeepRecent int
	// Protect lists session ids that are never removed (the active session).
	Protect []string
	DryRun  bool
}

// Plan returns the session ids under sessionsDir that p would remove, oldest
// first. Directories whose name is not a session id are ignored.
func Plan(sessionsDir string, p Policy, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	type dated struct {
		id string
		t  time.Time
	}
	var all []dated
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		t, parseErr := session.ParseID(entry.Name())
		if parseErr != nil {
			continue
		}
		all = append(all, dated{entry.Name(), t})
	}
	// Session ids sort chronologically.
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	protected := make(map[string]bool, len(p.Protect))
	for _, id := range p.Protect {
		protected[id] = true
	}

	cutoff := now.AddDate(0, 0, -p.MaxAgeDays)
	var doomed []string
	for i, d := range all {
		if protected[d.id] {
			continue
		}
		tooOld := p.MaxAgeDays > 0 && d.t.Before(cutoff)
		surplus := p.KeepRecent > 0 && i < len(all)-p.KeepRecent
		if tooOld || surplus {
			doomed = append(doomed, d.id)
		}
	}
	return doomed, nil
}

// Prune removes the sessions selected by Plan unless p.DryRun is set.
// Returns the ids that were (or would be) removed. On a removal error the ids
// removed so far are returned with the error.
func Prune(sessionsDir string, p Policy, now time.Time) ([]string, error) {
	doomed, err := Plan(sessionsDir, p, now)
	if err != nil || p.DryRun {
		return doomed, err
	}

	var pruned []string
	for _, id := range doomed {
		if rmErr := os.RemoveAll(filepath.Join(sessionsDir, id)); rmErr != nil {
			return pruned, fmt.Errorf("removing %s: %w", id, rmErr)
		}
		pruned = append(pruned, id)
	}
	return pruned, nil
}
