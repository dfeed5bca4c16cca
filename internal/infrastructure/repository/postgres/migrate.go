package postgres

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/riskibarqy/soccer-registry/db"
)

// NewMigrator reads migrations from dir when set and from the embedded
// copy otherwise.
func NewMigrator(dbURL, dir string) (*migrate.Migrate, error) {
	if dir != "" {
		m, err := migrate.New("file://"+filepath.ToSlash(dir), dbURL)
		if err != nil {
			return nil, fmt.Errorf("create migrator from %s: %w", dir, err)
		}
		return m, nil
	}

	src, err := iofs.New(db.Migrations, db.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator from embedded source: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration. No change is not an error.
func MigrateUp(dbURL, dir string) error {
	m, err := NewMigrator(dbURL, dir)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
