// events.go implements the "scribe events" command for reading the journal.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribe-dev/scribe/internal/log"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		sessionID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the event journal",
		Long: `Print recorded events (segments added, retranscriptions, renames,
pruning) from events.jsonl, newest last.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			journal, err := log.NewLogger(cfg.DataDir)
			if err != nil {
				return err
			}
			events, err := journal.ReadAll()
			if err != nil {
				return err
			}

			if sessionID != "" {
				kept := events[:0]
				for _, ev := range events {
					if ev.SessionID == sessionID {
						kept = append(kept, ev)
					}
				}
				events = kept
			}
			if limit > 0 && len(events) > limit {
				events = events[len(events)-limit:]
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			for _, ev := range events {
				fmt.Fprintln(out, formatEvent(ev))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only events of this session")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Show at most the last N events (0 = all)")
	return cmd
}

func formatEvent(ev log.LogEvent) string {
	parts := []string{ev.Time.Local().Format("2006-01-02 15:04:05"), ev.Event}
	if ev.SessionID != "" {
		parts = append(parts, "session="+ev.SessionID)
	}
	if ev.Segment != 0 {
		parts = append(parts, fmt.Sprintf("segment=%d", ev.Segment))
	}
	if ev.Name != "" {
		parts = append(parts, fmt.Sprintf("name=%q", ev.Name))
	}
	if ev.Audio != "" {
		parts = append(parts, "audio="+ev.Audio)
	}
	if ev.Chars != 0 {
		parts = append(parts, fmt.Sprintf("chars=%d", ev.Chars))
	}
	if ev.Count != 0 {
		parts = append(parts, fmt.Sprintf("count=%d", ev.Count))
	}
	if ev.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%q", ev.Error))
	}
	return strings.Join(parts, " ")
}
