// add.go implements the "scribe add" command for storing already transcribed
// text as a segment.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var (
		audio    string
		duration float64
	)

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Append text as the next segment of the active session",
		Long: `Store text as the next segment of the active session, starting a new
session if none is active. With --audio the recording is moved into the
session; if it cannot be moved its original path is recorded instead.
Empty text is ignored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return opts.withApp(cmd.Context(), true, func(a *app) error {
				seg, err := a.svc.AddText(cmd.Context(), text, audio, duration)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if seg.ID == 0 {
					fmt.Fprintln(out, "Nothing to add: text is empty.")
					return nil
				}
				id, err := a.activeID(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %s to session %s\n", seg.Name(), id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&audio, "audio", "", "Audio file the text was transcribed from")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Audio duration in seconds")
	return cmd
}
