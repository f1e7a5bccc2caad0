package main

import (
	"context"
	"fmt"

	"github.com/claude/wlog/internal/storage"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply session store migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closer, err := opts.load()
			if err != nil {
				return err
			}
			defer closer.Close()

			sessions, err := storage.Open(context.Background(), cfg.Sessions.Driver, cfg.Sessions.DSN())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info("migrations applied", "driver", cfg.Sessions.Driver)
			return sessions.Close()
		},
	}
}
