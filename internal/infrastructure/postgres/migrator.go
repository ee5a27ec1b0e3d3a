package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

// MigrationStatus is the schema version recorded by golang-migrate.
// Version 0 with Dirty false means no migration ran yet.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func newMigrator(databaseURL, migrationsPath string) (*migrate.Migrate, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open ledger migrations at %s: %w", migrationsPath, err)
	}
	return m, nil
}

// RunMigrations brings the ledger schema up to date. The server runs it on
// boot before the pool is opened.
func RunMigrations(databaseURL, migrationsPath string, logger zerolog.Logger) error {
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info().Str("path", migrationsPath).Msg("ledger schema up to date")
			return nil
		}
		return fmt.Errorf("migrate ledger schema up: %w", err)
	}

	status, err := readStatus(m)
	if err != nil {
		return err
	}
	logger.Info().Uint("version", status.Version).Msg("ledger schema migrated")
	return nil
}

// RunMigrationsDown rolls back exactly one migration.
func RunMigrationsDown(databaseURL, migrationsPath string, logger zerolog.Logger) error {
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("migrate ledger schema down: %w", err)
	}

	status, err := readStatus(m)
	if err != nil {
		return err
	}
	logger.Info().Uint("version", status.Version).Msg("ledger schema rolled back one step")
	return nil
}

// CurrentMigration reports the applied schema version without changing it.
func CurrentMigration(databaseURL, migrationsPath string) (MigrationStatus, error) {
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer m.Close()

	return readStatus(m)
}

func readStatus(m *migrate.Migrate) (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("read ledger schema version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}
