// status.go implements the "scribe status" command.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the data directory and the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), false, func(a *app) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Scribe Status")
				fmt.Fprintf(out, "Data:        %s\n", a.cfg.DataDir)
				fmt.Fprintf(out, "Transcriber: %s %s\n", a.cfg.Transcriber.Command, strings.Join(a.cfg.Transcriber.Args, " "))
				catalogState := "disabled"
				if a.catalog != nil {
					catalogState = a.cfg.CatalogPath()
				}
				fmt.Fprintf(out, "Catalog:     %s\n", catalogState)
				fmt.Fprintln(out)

				id, err := a.activeID(cmd.Context())
				if err != nil {
					return err
				}
				if id == "" {
					fmt.Fprintln(out, "No active session; the next segment starts a new one.")
					return nil
				}
				idx, err := a.svc.Index(id)
				if err != nil {
					return fmt.Errorf("reading active session %s: %w", id, err)
				}
				fmt.Fprintf(out, "Active:      %s", id)
				if idx.Name != "" {
					fmt.Fprintf(out, " (%s)", idx.Name)
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Segments:    %d\n", len(idx.Segments))
				if n := len(idx.Segments); n > 0 {
					fmt.Fprintf(out, "Last:        %s at %s\n",
						idx.Segments[n-1].Name(), idx.Segments[n-1].Timestamp.Local().Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}
