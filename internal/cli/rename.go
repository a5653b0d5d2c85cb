// rename.go implements the "scribe rename" command.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRenameCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name...>",
		Short: "Name the active session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return opts.withApp(cmd.Context(), true, func(a *app) error {
				if err := a.svc.Rename(cmd.Context(), name); err != nil {
					return err
				}
				id, err := a.activeID(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed session %s to %q\n", id, strings.TrimSpace(name))
				return nil
			})
		},
	}
}
