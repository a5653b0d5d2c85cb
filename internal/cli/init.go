// init.go implements the "scribe init" command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scribe-dev/scribe/internal/config"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the data directory",
		Long: `Write config.yaml with default settings (unless one exists) and create
the data directory with its sessions/ folder. Use --force to overwrite an
existing config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			out := cmd.OutOrStdout()

			_, statErr := os.Stat(path)
			keep := statErr == nil && !force

			cfg := config.DefaultConfig()
			if keep {
				existing, err := config.ReadConfig(path)
				if err != nil {
					return err
				}
				cfg = existing
			}
			if opts.dataDir != "" {
				cfg.DataDir = opts.dataDir
			}
			if keep {
				fmt.Fprintf(out, "Config already exists: %s\n", path)
			} else {
				if err := config.WriteConfig(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote config: %s\n", path)
			}
			if err := os.MkdirAll(cfg.SessionsDir(), 0755); err != nil {
				return fmt.Errorf("creating sessions directory: %w", err)
			}
			fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
			fmt.Fprintf(out, "Transcriber: %s\n", cfg.Transcriber.Command)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config with defaults")
	return cmd
}
