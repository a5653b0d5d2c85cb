// Package state persists which session the CLI is currently appending to, so
// consecutive invocations keep extending the same session.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/scribe-dev/scribe/internal/fileio"
)

// ErrCorrupt is returned when state.json exists but cannot be parsed.
var ErrCorrupt = errors.New("corrupt state file")

// State is the content of state.json.
type State struct {
	ActiveSession string    `json:"active_session,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Save writes st to path atomically, stamping UpdatedAt.
func Save(path string, st *State) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := fileio.AtomicWriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Load reads the state file.
// Returns nil, nil if no state exists (not an error).
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &st, nil
}

// ActiveSession returns the saved active session id, or "" when none is saved.
func ActiveSession(path string) (string, error) {
	st, err := Load(path)
	if err != nil || st == nil {
		return "", err
	}
	return st.ActiveSession, nil
}

// Clear removes the state file.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state: %w", err)
	}
	return nil
}
