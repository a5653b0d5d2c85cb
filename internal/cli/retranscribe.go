// retranscribe.go implements the "scribe retranscribe" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetranscribeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retranscribe",
		Short: "Re-run the transcriber on the last segment",
		Long: `Transcribe the last segment's stored audio again and replace its text.
If the transcriber fails, every file of the session is left unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), true, func(a *app) error {
				text, err := a.svc.Retranscribe(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}
