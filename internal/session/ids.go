package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// IDLayout is the session id format. It is fixed width, zero padded and
// always rendered in UTC, so lexicographic order is chronological order.
const IDLayout = "20060102-150405"

// ParseID returns the creation time encoded in a session id.
func ParseID(id string) (time.Time, error) {
	if len(id) != len(IDLayout) {
		return time.Time{}, ErrInvalidID
	}
	t, err := time.ParseInLocation(IDLayout, id, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidID
	}
	return t, nil
}

// ValidID reports whether id is a well-formed session id.
func ValidID(id string) bool {
	_, err := ParseID(id)
	return err == nil
}

// maxIDProbes bounds how far next walks forward looking for a free id.
const maxIDProbes = 3600

// idGenerator issues strictly increasing session ids. A candidate that is not
// after the last issued id, or whose path under root exists or cannot be
// checked, is pushed forward one second at a time.
type idGenerator struct {
	last time.Time
}

func (g *idGenerator) next(root string, now time.Time) (string, error) {
	t := now.UTC().Truncate(time.Second)
	if !g.last.IsZero() && !t.After(g.last) {
		t = g.last.Add(time.Second)
	}
	var lastErr error
	for range maxIDProbes {
		id := t.Format(IDLayout)
		_, err := os.Stat(filepath.Join(root, id))
		if errors.Is(err, fs.ErrNotExist) {
			g.last = t
			return id, nil
		}
		if err != nil {
			lastErr = err
		}
		t = t.Add(time.Second)
	}
	if lastErr != nil {
		return "", fmt.Errorf("no free session id under %s: %w", root, lastErr)
	}
	return "", fmt.Errorf("no free session id under %s", root)
}
