// reindex.go implements the "scribe reindex" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the session catalog from the session directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), true, func(a *app) error {
				n, err := a.svc.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d session(s).\n", n)
				return nil
			})
		},
	}
}
