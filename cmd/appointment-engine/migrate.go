package main

import (
	"fmt"

	"github.com/kursadbilgin/appointment-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/appointment-engine/internal/infra/postgresql/migrations"
	"github.com/kursadbilgin/appointment-engine/internal/regional"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var withRegional bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap("migrate")
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()

			db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("postgres initialization failed: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("postgres underlying db init failed: %w", err)
			}
			defer sqlDB.Close()

			if err := migrations.Migrate(db); err != nil {
				return fmt.Errorf("database migrations failed: %w", err)
			}
			logger.Info("appointments schema migrated")

			if !withRegional {
				return nil
			}

			dbs, err := openRegionalDBs(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				for _, regionalDB := range dbs {
					_ = regional.Close(regionalDB)
				}
			}()

			if _, err := regionalStores(ctx, dbs); err != nil {
				return err
			}
			logger.Info("regional schemas ensured", zap.Int("countries", len(dbs)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withRegional, "regional", false, "also create the regional appointment tables")
	return cmd
}
