package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// AudioPlaceholder in Command.Args is replaced with the audio path.
const AudioPlaceholder = "{audio}"

const waitDelay = 2 * time.Second

// ErrNoCommand is returned when no transcriber program is configured.
var ErrNoCommand = errors.New("transcribe: no command configured")

// Command runs an external speech-to-text program and reads the transcript
// from its standard output.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration // 0 means no limit beyond the caller's context
}

// NewCommand returns a Command backend.
func NewCommand(name string, args []string, timeout time.Duration) *Command {
	return &Command{Name: name, Args: args, Timeout: timeout}
}

// Transcribe runs the program on audioPath. Output is trimmed; a non-zero
// exit is reported with the program's stderr.
func (c *Command) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if c.Name == "" {
		return "", ErrNoCommand
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.buildArgs(audioPath)...)
	// Children of a killed program may keep the output pipes open.
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s timed out after %s: %w", c.Name, c.Timeout, ctx.Err())
		}
		return "", fmt.Errorf("%s exited with error: %w\nstderr: %s", c.Name, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// buildArgs substitutes the audio path, appending it when no placeholder is
// present.
func (c *Command) buildArgs(audioPath string) []string {
	args := make([]string, 0, len(c.Args)+1)
	substituted := false
	for _, a := range c.Args {
		if strings.Contains(a, AudioPlaceholder) {
			a = strings.ReplaceAll(a, AudioPlaceholder, audioPath)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, audioPath)
	}
	return args
}
