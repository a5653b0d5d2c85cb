// Package fileio provides crash-safe file writes for the session store.
package fileio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// testHookBeforeRename runs after the temp file is synced and before it is
// renamed onto the destination. Tests use it to simulate a crash.
var testHookBeforeRename func(tempPath string) error

// RenameError wraps a rename failure with the temporary file path.
type RenameError struct {
	Err      error
	tempPath string
}

func (e RenameError) Error() string    { return e.Err.Error() }
func (e RenameError) TempPath() string { return e.tempPath }
func (e RenameError) Unwrap() error    { return e.Err }

// AtomicWriteFile writes data to filename so that readers only ever observe
// the previous content or the complete new content.
//
// The data is written to a temp file in the destination directory, synced to
// stable storage, then renamed over filename. On any error the destination is
// left untouched and the temp file is removed.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(filename)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := tempFile.Name()

	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove temporary file", "path", tempPath, "error", err)
			}
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("closing temp file %q: %w", tempPath, err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if testHookBeforeRename != nil {
		if err := testHookBeforeRename(tempPath); err != nil {
			return err
		}
	}

	if err := os.Rename(tempPath, filename); err != nil {
		return RenameError{Err: err, tempPath: tempPath}
	}
	success = true

	syncDir(dir)
	return nil
}

// AtomicWriteString is AtomicWriteFile for text payloads with 0644 permissions.
func AtomicWriteString(filename, text string) error {
	return AtomicWriteFile(filename, []byte(text), 0644)
}

// syncDir flushes the directory entry so the rename survives a power loss.
// Not every platform supports fsync on a directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
