package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scribe-dev/scribe/internal/fileio"
)

// BuildAggregate joins trimmed segment texts with one blank line between them
// and a single trailing newline. Texts that are blank after trimming are
// skipped; if nothing remains the transcript is empty.
func BuildAggregate(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// ReadSegmentTexts reads every segment's text file from disk, in the order
// given.
func ReadSegmentTexts(dir string, segments []Segment) ([]string, error) {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		data, err := os.ReadFile(resolve(dir, seg.Text))
		if err != nil {
			return nil, fmt.Errorf("reading %s text: %w", seg.Name(), err)
		}
		texts = append(texts, string(data))
	}
	return texts, nil
}

// RebuildAggregate rewrites the aggregate transcript of the session in dir
// from the segment text files on disk.
func RebuildAggregate(dir string, segments []Segment) error {
	texts, err := ReadSegmentTexts(dir, segments)
	if err != nil {
		return err
	}
	if err := fileio.AtomicWriteString(filepath.Join(dir, AggregateFile), BuildAggregate(texts)); err != nil {
		return fmt.Errorf("writing aggregate: %w", err)
	}
	return nil
}

// resolve maps a stored artifact reference to a filesystem path.
func resolve(dir, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(dir, filepath.FromSlash(ref))
}
