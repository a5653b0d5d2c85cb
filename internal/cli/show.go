// show.go implements the "scribe show" and "scribe export" commands.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribe-dev/scribe/internal/report"
	"github.com/scribe-dev/scribe/internal/session"
)

// sessionArg returns the session named in args, or the active one.
func (a *app) sessionArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	id, err := a.activeID(cmd.Context())
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("no active session; pass a session id")
	}
	return id, nil
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var segments bool

	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Print a session's aggregate transcript",
		Long: `Print the aggregate transcript of a stored session, or of the active
session when no id is given. --segments lists the segments instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), false, func(a *app) error {
				id, err := a.sessionArg(cmd, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if !segments {
					text, err := a.svc.Load(id)
					if err != nil {
						return err
					}
					fmt.Fprint(out, text)
					return nil
				}

				idx, err := a.svc.Index(id)
				if err != nil {
					return err
				}
				texts, err := session.ReadSegmentTexts(a.svc.Repository().SessionDir(id), idx.Segments)
				if err != nil {
					return err
				}
				for i, seg := range idx.Segments {
					fmt.Fprintf(out, "%s  %s  %5.1fs  %s\n",
						seg.Name(), seg.Timestamp.Local().Format("2006-01-02 15:04:05"), seg.Duration, seg.Audio)
					fmt.Fprintf(out, "    %s\n", firstLine(texts[i]))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&segments, "segments", false, "List segments with their audio and text")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Export a session as text or markdown",
		Long: `Render a session as plain text (the aggregate transcript) or markdown
(one section per segment). Without --out the result is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), false, func(a *app) error {
				id, err := a.sessionArg(cmd, args)
				if err != nil {
					return err
				}
				r, err := report.GenerateReport(a.svc.Repository(), id)
				if err != nil {
					return err
				}
				if outPath == "" {
					content, err := report.Render(r, f)
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), content)
					return nil
				}
				if err := report.WriteReport(outPath, r, f); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", id, outPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "txt", "Output format: txt or md")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
