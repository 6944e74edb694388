package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"PublishGate/internal/config"
	"PublishGate/internal/logging"
)

type rootOptions struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "publishgate",
		Short: "Pre-publish validation and publish orchestration",
		Long: `publishgate decides whether a content record may be published and dispatches it
to the external publishing endpoint.

Example usage:
  publishgate serve                          # Serve the HTTP API
  publishgate validate --file record.json    # Print the verdict for one record
  publishgate migrate                        # Apply database migrations`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $PUBLISHGATE_CONFIG)")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}
