package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/okian/asinrank/internal/config"
	"github.com/okian/asinrank/pkg/logger"
)

//go:embed migrations
var migrationsFS embed.FS

const migrationsTable = "asinrank_schema_migrations"

// migrate brings the schema to the latest version. SQLite migrates through the
// store's own handle so in-memory databases see the table; the server backends
// use a short-lived handle because their migrate drivers pin a connection.
func (s *SQLStore) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, "migrations/"+s.backend)
	if err != nil {
		return fmt.Errorf("%w: migrations for %s: %w", ErrMigrate, s.backend, err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("%w: migration source: %w", ErrMigrate, err)
	}

	db := s.db
	if s.backend != config.BackendSQLite {
		driverName, _, _ := driverFor(s.backend, s.dsn)
		db, err = sql.Open(driverName, s.dsn)
		if err != nil {
			return fmt.Errorf("%w: open: %w", ErrMigrate, err)
		}
		defer func() { _ = db.Close() }()
	}

	var driver database.Driver
	switch s.backend {
	case config.BackendSQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: migrationsTable})
	case config.BackendMySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: migrationsTable})
	case config.BackendPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, s.backend)
	}
	if err != nil {
		return fmt.Errorf("%w: %s driver: %w", ErrMigrate, s.backend, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.backend, driver)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	if s.backend != config.BackendSQLite {
		// Closing the sqlite driver would close the store's own handle.
		defer func() { _, _ = m.Close() }()
	}

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("%w: read version: %w", ErrMigrate, err)
	}
	if dirty {
		return fmt.Errorf("%w: schema is dirty at version %d", ErrMigrate, before)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			s.log.Debug(ctx, "schema up to date", logger.Int("version", int(before)))
			return nil
		}
		return fmt.Errorf("%w: up: %w", ErrMigrate, err)
	}
	after, _, _ := m.Version()
	s.log.Info(ctx, "schema migrated",
		logger.Int("from", int(before)),
		logger.Int("to", int(after)),
	)
	return nil
}
