package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"stayengine/internal/infra/obs"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create database schema and indexes for the configured stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := obs.NewLogger(cfg.Env)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			b, err := openBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.close(context.Background(), logger)
			if err := b.runMigrations(ctx); err != nil {
				return err
			}
			logger.Info("migrations applied", "store", cfg.StoreDriver, "steps", len(b.migrate))
			return nil
		},
	}
}
