package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations
var migrationsFS embed.FS

// ApplyMigrations creates the schema and seeds the role catalogue. It opens its
// own connection so the caller's pool is never closed by the migrator.
func ApplyMigrations(cfg Config, log zerolog.Logger) error {
	if !cfg.Dialect.Valid() {
		return fmt.Errorf("migrate: unsupported dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(cfg.Dialect.driverName(), cfg.DataSource())
	if err != nil {
		return fmt.Errorf("opening database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var driver database.Driver
	switch cfg.Dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case SQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(cfg.Dialect))
	if err != nil {
		return fmt.Errorf("opening migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(cfg.Dialect), driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("checking migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state (version %d)", version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug().Uint("version", version).Msg("schema up to date")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	log.Info().Uint("from", version).Uint("to", newVersion).Str("dialect", string(cfg.Dialect)).Msg("schema migrated")
	return nil
}
