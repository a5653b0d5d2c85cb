// Package cli defines Cobra command definitions for the scribe CLI.
// This file contains the root command, global flags and Execute.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags at build time

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dataDir    string
	verbose    bool
}

// NewRootCmd builds the scribe command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "scribe",
		Short: "Segmented dictation transcripts on disk",
		Long: `Scribe stores dictation as sessions of short segments. Each segment keeps
its audio and transcript; every session keeps an aggregate transcript that is
always in step with its segments, and the last segment can be re-transcribed.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $SCRIBE_CONFIG or ~/.scribe/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Override the data directory from the config")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Debug logging on stderr")

	cmd.AddCommand(
		newInitCmd(opts),
		newAddCmd(opts),
		newTranscribeCmd(opts),
		newRetranscribeCmd(opts),
		newNewCmd(opts),
		newResumeCmd(opts),
		newRenameCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newShowCmd(opts),
		newExportCmd(opts),
		newPruneCmd(opts),
		newReindexCmd(opts),
		newStatusCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
