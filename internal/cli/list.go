// list.go implements the "scribe list" and "scribe search" commands.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribe-dev/scribe/internal/catalog"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [filter]",
		Short: "List stored sessions, oldest first",
		Long: `List stored sessions in chronological order. An optional filter keeps
sessions whose id contains it (case-insensitive). Directories without a
readable index are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return opts.withApp(cmd.Context(), false, func(a *app) error {
				ids, err := a.svc.List(filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintln(out, "No sessions found.")
					return nil
				}
				active, _ := a.activeID(cmd.Context())
				for _, id := range ids {
					idx, err := a.svc.Index(id)
					if err != nil {
						a.logger.Debug("session vanished while listing", "session", id, "error", err)
						continue
					}
					marker := " "
					if id == active {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %s  %3d segment(s)  %s\n", marker, id, len(idx.Segments), idx.Name)
				}
				return nil
			})
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find sessions by id, name or transcript text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), false, func(a *app) error {
				found, err := a.svc.Search(args[0], limit)
				if err != nil {
					return err
				}
				printSummaries(cmd.OutOrStdout(), found)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results (0 = no limit)")
	return cmd
}

func printSummaries(out io.Writer, summaries []catalog.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No matching sessions.")
		return
	}
	for _, s := range summaries {
		title := s.Name
		if title == "" {
			title = "(unnamed)"
		}
		fmt.Fprintf(out, "%s  %s\n", s.ID, title)
		if p := strings.TrimSpace(s.Preview); p != "" {
			fmt.Fprintf(out, "    %s\n", p)
		}
	}
}
