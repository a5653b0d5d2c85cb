// Package ui provides terminal output helpers for scribe.
// This file implements the progress display shown during batch transcription.
package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// FileStatus represents the transcription status of one audio file.
type FileStatus int

const (
	StatusPending      FileStatus = iota // Queued
	StatusTranscribing                   // Model running
	StatusSaved                          // Stored as a segment
	StatusTranscribed                    // Transcribed, not stored
	StatusEmpty                          // Model returned no speech
	StatusFailed                         // Transcription or storage failed
	StatusSkipped                        // Not attempted
)

// FileState holds the display state of a single audio file.
type FileState struct {
	Path    string
	Status  FileStatus
	Segment string // segment name once saved
	Err     error
	Elapsed time.Duration
}

// ProgressDisplay manages a live-updating view of a transcription batch.
type ProgressDisplay struct {
	mu          sync.Mutex
	out         io.Writer
	title       string
	files       []*FileState
	started     bool
	isTTY       bool
	linesDrawn  int
	startTimes  map[int]time.Time
	lastPrinted map[int]FileStatus // non-TTY: last printed status per file
}

// NewProgressDisplay creates a ProgressDisplay writing to out. In-place
// redraws are used only when out is a terminal.
func NewProgressDisplay(out io.Writer, title string) *ProgressDisplay {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &ProgressDisplay{
		out:         out,
		title:       title,
		isTTY:       isTTY,
		startTimes:  make(map[int]time.Time),
		lastPrinted: make(map[int]FileStatus),
	}
}

// AddFile registers an audio file and returns its handle for Update.
func (p *ProgressDisplay) AddFile(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, &FileState{Path: path})
	return len(p.files) - 1
}

// Start draws the initial display.
func (p *ProgressDisplay) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
	p.render()
}

// Update sets a file's status. segment and err are recorded when non-empty.
func (p *ProgressDisplay) Update(handle int, status FileStatus, segment string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if handle < 0 || handle >= len(p.files) {
		return
	}
	f := p.files[handle]
	f.Status = status
	if segment != "" {
		f.Segment = segment
	}
	if err != nil {
		f.Err = err
	}

	switch status {
	case StatusTranscribing:
		p.startTimes[handle] = time.Now()
	case StatusSaved, StatusTranscribed, StatusEmpty, StatusFailed, StatusSkipped:
		if start, ok := p.startTimes[handle]; ok {
			f.Elapsed = time.Since(start)
		}
	}

	if p.started {
		p.render()
	}
}

// Finish prints a summary line and returns the number of files that failed
// or were skipped.
func (p *ProgressDisplay) Finish() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var saved, transcribed, empty, failed, skipped int
	for _, f := range p.files {
		switch f.Status {
		case StatusSaved:
			saved++
		case StatusTranscribed:
			transcribed++
		case StatusEmpty:
			empty++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}

	fmt.Fprintf(p.out, "\nDone: %d/%d", saved+transcribed, len(p.files))
	if empty > 0 {
		fmt.Fprintf(p.out, ", %d empty", empty)
	}
	if failed > 0 {
		fmt.Fprintf(p.out, ", %d failed", failed)
	}
	if skipped > 0 {
		fmt.Fprintf(p.out, ", %d skipped", skipped)
	}
	fmt.Fprintln(p.out)
	return failed + skipped
}

func (p *ProgressDisplay) render() {
	if !p.isTTY {
		p.renderPlain()
		return
	}
	p.renderTTY()
}

// renderTTY redraws every line in place using ANSI escape codes.
func (p *ProgressDisplay) renderTTY() {
	if p.linesDrawn > 0 {
		fmt.Fprintf(p.out, "\033[%dA", p.linesDrawn)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "\033[2K\033[1m%s\033[0m\n", p.title)
	for i, f := range p.files {
		buf.WriteString("\033[2K")
		buf.WriteString(formatFileLine(f, p.startTimes[i]))
		buf.WriteString("\n")
	}

	fmt.Fprint(p.out, buf.String())
	p.linesDrawn = len(p.files) + 1
}

// renderPlain prints one line per status transition (for CI/piping).
func (p *ProgressDisplay) renderPlain() {
	for i, f := range p.files {
		if f.Status == StatusPending {
			continue
		}
		if prev, seen := p.lastPrinted[i]; seen && prev == f.Status {
			continue
		}
		fmt.Fprintln(p.out, formatFileLinePlain(f))
		p.lastPrinted[i] = f.Status
	}
}

func formatFileLine(f *FileState, started time.Time) string {
	name := filepath.Base(f.Path)
	if len(name) > 40 {
		name = name[:37] + "..."
	}
	return fmt.Sprintf("  %s %-40s  %s", statusIcon(f.Status), name, statusDetail(f, started))
}

func formatFileLinePlain(f *FileState) string {
	var status string
	switch f.Status {
	case StatusTranscribing:
		status = "RUNNING"
	case StatusSaved:
		status = fmt.Sprintf("SAVED %s [%s]", f.Segment, formatDuration(f.Elapsed))
	case StatusTranscribed:
		status = fmt.Sprintf("DONE [%s]", formatDuration(f.Elapsed))
	case StatusEmpty:
		status = "EMPTY"
	case StatusSkipped:
		status = "SKIPPED"
		if f.Err != nil {
			status += ": " + f.Err.Error()
		}
	case StatusFailed:
		status = "FAILED"
		if f.Err != nil {
			status += ": " + f.Err.Error()
		}
	default:
		status = "PENDING"
	}
	return fmt.Sprintf("[%s] %s", status, f.Path)
}

func statusIcon(status FileStatus) string {
	switch status {
	case StatusSaved, StatusTranscribed:
		return "\033[32m\u2705\033[0m"
	case StatusTranscribing:
		return "\033[33m\u23f3\033[0m"
	case StatusFailed:
		return "\033[31m\u274c\033[0m"
	case StatusEmpty:
		return "\033[90m\u2205\033[0m"
	case StatusSkipped:
		return "\033[90m\u23ed\033[0m"
	default:
		return "\033[90m\u25cb\033[0m"
	}
}

func statusDetail(f *FileState, started time.Time) string {
	switch f.Status {
	case StatusSaved:
		return fmt.Sprintf("\033[90m[%s, %s]\033[0m", f.Segment, formatDuration(f.Elapsed))
	case StatusTranscribed:
		return fmt.Sprintf("\033[90m[%s]\033[0m", formatDuration(f.Elapsed))
	case StatusTranscribing:
		return fmt.Sprintf("\033[33m[%s]\033[0m", formatDuration(time.Since(started)))
	case StatusEmpty:
		return "\033[90m[no speech]\033[0m"
	case StatusFailed:
		return "\033[31m[failed]\033[0m"
	case StatusSkipped:
		return "\033[90m[skipped]\033[0m"
	default:
		return "\033[90m[pending]\033[0m"
	}
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
