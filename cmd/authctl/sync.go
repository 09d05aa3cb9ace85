package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/database"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/kafka"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/logger"
	postgresrepo "github.com/Rethick-Jeganathan/Procura/internal/repository/postgres"
	"github.com/Rethick-Jeganathan/Procura/internal/usecase"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnvironment()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(cfg.Postgres, cfg.App.MigrationsDir, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		fmt.Println("Migrations applied")
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Create profiles for identities that predate the sync trigger",
	Long:  "Scans the identity store for accounts without a profile row and creates the missing rows. Safe to run repeatedly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sync, pool, err := newSyncService(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		repaired, err := sync.Backfill(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Backfill complete: %d profile(s) created\n", repaired)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "sync-status",
	Short: "Compare identity and profile counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sync, pool, err := newSyncService(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		report, err := sync.Divergence(ctx)
		if err != nil && !errors.Is(err, usecase.ErrSyncDivergence) {
			return err
		}

		fmt.Printf("Identities: %d\n", report.Identities)
		fmt.Printf("Profiles:   %d\n", report.Profiles)
		if report.Diverged() {
			return fmt.Errorf("stores diverged by %d row(s), run 'authctl backfill'", report.Identities-report.Profiles)
		}
		fmt.Println("Status:     converged")
		return nil
	},
}

func loadEnvironment() (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func newSyncService(ctx context.Context) (*usecase.SyncService, *pgxpool.Pool, error) {
	cfg, log, err := loadEnvironment()
	if err != nil {
		return nil, nil, err
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}

	identities := postgresrepo.NewIdentityRepository(pool)
	profiles := postgresrepo.NewProfileRepository(pool)
	publisher := kafka.NewStubPublisher(log)

	return usecase.NewSyncService(identities, profiles, publisher, log), pool, nil
}
