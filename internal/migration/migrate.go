package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/josh-kwaku/tradebooks/internal/logging"
)

//go:embed sql/*.sql
var embedded embed.FS

// Files exposes the embedded migration set.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

type Migrator struct {
	m *migrate.Migrate
}

func New(db *sql.DB) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("migration.New: database handle is required")
	}

	source, err := iofs.New(Files(), ".")
	if err != nil {
		return nil, fmt.Errorf("migration.New: source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration.New: driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration.New: %w", err)
	}
	return &Migrator{m: m}, nil
}

func (mg *Migrator) Up(ctx context.Context) error {
	log := logging.FromContext(ctx)

	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("Up: %w", err)
	}

	version, dirty, err := mg.m.Version()
	if err != nil {
		return fmt.Errorf("Up: version: %w", err)
	}
	log.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

func (mg *Migrator) Down(ctx context.Context) error {
	err := mg.m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("Down: %w", err)
	}
	logging.FromContext(ctx).Info("migrations rolled back")
	return nil
}

// Version returns 0 when no migration has been applied.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("Version: %w", err)
	}
	return v, dirty, nil
}

// Run applies every pending migration. The migrator is not closed because
// closing it would close the shared *sql.DB.
func Run(ctx context.Context, db *sql.DB) error {
	mg, err := New(db)
	if err != nil {
		return err
	}
	return mg.Up(ctx)
}

// Ready fails while no migration is applied or the last one left the schema
// dirty. It reads golang-migrate's schema_migrations table directly.
func Ready(ctx context.Context, db *sql.DB) error {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New("migration.Ready: no migration applied")
	}
	if err != nil {
		return fmt.Errorf("migration.Ready: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration.Ready: version %d is dirty", version)
	}
	return nil
}
