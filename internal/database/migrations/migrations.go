package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"ticketnepal/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var embedded embed.FS

// SchemaVersion is the last migration that only creates schema. Later
// versions load demo data.
const SchemaVersion uint = 1

type MigrateOptions struct {
	// Dir overrides the embedded migrations with a directory on disk.
	Dir string
	// SeedData also applies the demo data migrations.
	SeedData bool
}

// Runner applies the service's PostgreSQL migrations.
type Runner struct {
	db       *sql.DB
	options  MigrateOptions
	logger   *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(db *sql.DB, opts MigrateOptions, log *logger.Logger) *Runner {
	return &Runner{db: db, options: opts, logger: log}
}

func (r *Runner) Initialize() error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	var m *migrate.Migrate
	if r.options.Dir != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+r.options.Dir, "postgres", driver)
	} else {
		var src source.Driver
		src, err = iofs.New(embedded, "sql")
		if err != nil {
			return fmt.Errorf("failed to open embedded migrations: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	r.migrator = m
	return nil
}

func (r *Runner) ensure() error {
	if r.migrator != nil {
		return nil
	}
	return r.Initialize()
}

// RunMigrations brings the schema up to date, including seed data when asked for.
func (r *Runner) RunMigrations() error {
	if err := r.ensure(); err != nil {
		return err
	}

	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		r.logger.Warn("MIGRATE", fmt.Sprintf("Schema version %d is dirty, forcing it before retrying", version))
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if r.options.SeedData {
		r.logger.Info("MIGRATE", "Running all migrations including seed data")
		err = r.migrator.Up()
	} else if errors.Is(err, migrate.ErrNilVersion) || version < SchemaVersion {
		r.logger.Info("MIGRATE", "Running schema migrations only")
		err = r.migrator.Migrate(SchemaVersion)
	} else {
		err = nil
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if v, _, err := r.migrator.Version(); err == nil {
		r.logger.Info("MIGRATE", fmt.Sprintf("Current schema version: %d", v))
	}
	return nil
}

func (r *Runner) MigrateDown() error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

func (r *Runner) MigrateTo(version uint) error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

// Close releases the migrator. This also closes the *sql.DB given to NewRunner.
func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("error closing migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("error closing migrator database: %w", databaseErr)
	}
	return nil
}
