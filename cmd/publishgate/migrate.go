package main

import (
	"errors"

	"github.com/spf13/cobra"

	"PublishGate/internal/infrastructure/storage"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Database.DSN == "" {
				return errors.New("database dsn is required (set DATABASE_DSN)")
			}
			pool, err := storage.Connect(cmd.Context(), opts.cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			return storage.Migrate(cmd.Context(), pool, opts.logger.With("component", "migrate"))
		},
	}
}
