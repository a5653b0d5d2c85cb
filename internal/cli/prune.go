// prune.go implements the "scribe prune" command for retiring old sessions.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scribe-dev/scribe/internal/cleanup"
)

func newPruneCmd(opts *rootOptions) *cobra.Command {
	var (
		keep   int
		maxAge int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old sessions",
		Long: `Remove stored sessions older than cleanup.max_age_days from the config
(or --max-age). Use --keep to keep only the N most recent sessions instead.
The active session is never removed. Use --dry-run to preview.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), true, func(a *app) error {
				p := cleanup.Policy{DryRun: dryRun}
				if keep > 0 {
					p.KeepRecent = keep
				} else {
					p.MaxAgeDays = maxAge
					if p.MaxAgeDays <= 0 {
						p.MaxAgeDays = a.cfg.Cleanup.MaxAgeDays
					}
					if p.MaxAgeDays <= 0 {
						p.MaxAgeDays = 90
					}
				}

				pruned, err := a.svc.Prune(cmd.Context(), p, time.Now())
				if err != nil {
					return fmt.Errorf("cleanup failed: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(pruned) == 0 {
					fmt.Fprintln(out, "No sessions to clean up.")
					return nil
				}
				verb := "Removed"
				if dryRun {
					verb = "Would remove"
				}
				for _, id := range pruned {
					fmt.Fprintf(out, "  %s %s\n", verb, id)
				}
				fmt.Fprintf(out, "%s %d session(s).\n", verb, len(pruned))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Keep only the last N sessions (0 = use age-based cleanup)")
	cmd.Flags().IntVar(&maxAge, "max-age", 0, "Remove sessions older than this many days (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview what would be removed without deleting")
	return cmd
}
