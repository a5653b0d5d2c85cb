// Package transcribe adapts speech-to-text backends to the session store.
// Model selection and inference live outside scribe; a backend here only
// invokes them.
package transcribe

import (
	"context"

	"github.com/scribe-dev/scribe/internal/session"
)

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Func adapts a plain function to Transcriber.
type Func func(ctx context.Context, audioPath string) (string, error)

// Transcribe calls f.
func (f Func) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f(ctx, audioPath)
}

// Bind returns a session.TranscribeFunc that calls t under ctx, so
// cancelling ctx aborts a retranscription in progress.
func Bind(ctx context.Context, t Transcriber) session.TranscribeFunc {
	return func(audioPath string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return t.Transcribe(ctx, audioPath)
	}
}
