// transcribe.go implements the "scribe transcribe" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribe-dev/scribe/internal/transcribe"
	"github.com/scribe-dev/scribe/internal/ui"
)

func newTranscribeCmd(opts *rootOptions) *cobra.Command {
	var noSave bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio>...",
		Short: "Transcribe audio files into the active session",
		Long: `Run the configured transcriber on each audio file in order and store every
non-empty result as the next segment of the active session. With --no-save
the transcripts are printed and nothing is stored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if noSave {
				return opts.withApp(ctx, false, func(a *app) error {
					for _, path := range args {
						res, err := a.svc.Transcribe(ctx, path, 0, false)
						if err != nil {
							return fmt.Errorf("%s: %w", path, err)
						}
						if len(args) > 1 {
							fmt.Fprintf(out, "== %s\n", path)
						}
						fmt.Fprintln(out, res.Text)
					}
					return nil
				})
			}

			return opts.withApp(ctx, true, func(a *app) error {
				progress := ui.NewProgressDisplay(out, fmt.Sprintf("Transcribing %d file(s)", len(args)))
				handles := make([]int, len(args))
				for i, path := range args {
					handles[i] = progress.AddFile(path)
				}
				progress.Start()

				breaker := transcribe.NewBreaker(a.cfg.Transcriber.MaxFailures)
				for i, path := range args {
					if ctx.Err() != nil {
						break
					}
					if breaker.Tripped() {
						progress.Update(handles[i], ui.StatusSkipped, "",
							fmt.Errorf("after %d consecutive failures", breaker.Failures()))
						continue
					}
					progress.Update(handles[i], ui.StatusTranscribing, "", nil)
					res, err := a.svc.Transcribe(ctx, path, 0, true)
					breaker.Record(err)
					switch {
					case err != nil:
						a.logger.Debug("transcription failed", "audio", path, "error", err)
						progress.Update(handles[i], ui.StatusFailed, "", err)
					case res.Saved:
						progress.Update(handles[i], ui.StatusSaved, res.Segment.Name(), nil)
					default:
						progress.Update(handles[i], ui.StatusEmpty, "", nil)
					}
				}

				failed := progress.Finish()
				if err := ctx.Err(); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d file(s) not transcribed", failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noSave, "no-save", false, "Print transcripts without storing them")
	return cmd
}
