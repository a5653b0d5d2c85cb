// new.go implements the "scribe new" and "scribe resume" commands, which
// choose the session that the next segment goes to.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new session with the next segment",
		Long: `Detach from the active session. Its files are left as they are; the next
segment starts a fresh session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), true, func(a *app) error {
				prev, err := a.activeID(cmd.Context())
				if err != nil {
					return err
				}
				if err := a.svc.NewSession(cmd.Context()); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if prev != "" {
					fmt.Fprintf(out, "Closed session %s.\n", prev)
				}
				fmt.Fprintln(out, "The next segment starts a new session.")
				return nil
			})
		},
	}
}

func newResumeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Make a stored session the active one",
		Long: `Reactivate a stored session so that new segments are appended to it.
Numbering continues after the highest segment found in the session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), true, func(a *app) error {
				if err := a.svc.Resume(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resumed session %s\n", args[0])
				return nil
			})
		},
	}
}
