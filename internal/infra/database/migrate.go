package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
)

// RunMigrations applies all pending migrations from the configured directory.
// Already-applied migrations are skipped, so this is safe to run on every
// start.
func RunMigrations(cfg config.PostgresSettings, migrationsDir string, log *zap.Logger) error {
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}

	sourceURL := "file://" + migrationsDir
	databaseURL := strings.Replace(DSN(cfg), "postgres://", "pgx5://", 1)

	migrator, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("database schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))

	return nil
}
