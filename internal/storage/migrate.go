package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Each file under migrations/ is one additive step. golang-migrate records
// the applied version in schema_migrations and wraps every step in its own
// transaction, so a step runs only when the stored version is below it.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending step and returns the resulting schema
// version.
func RunMigrations(dbPath string) (uint, error) {
	return MigrateTo(dbPath, 0)
}

// MigrateTo moves the schema up to target (0 means latest). It never runs
// down steps: a target below the stored version is an error.
func MigrateTo(dbPath string, target uint) (uint, error) {
	// Separate connection so migrate's Close does not take the main pool with it.
	migrateDB, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return current, fmt.Errorf("schema version %d is dirty", current)
	}

	latest, err := LatestVersion()
	if err != nil {
		return current, err
	}
	if current > latest {
		return current, fmt.Errorf("schema version %d is newer than this build (latest %d)", current, latest)
	}
	if target > latest {
		return current, fmt.Errorf("no migration %d (latest %d)", target, latest)
	}

	if target == 0 {
		err = m.Up()
	} else {
		if target < current {
			return current, fmt.Errorf("refusing to migrate down from %d to %d", current, target)
		}
		err = m.Migrate(target)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// LatestVersion returns the highest step number shipped with the binary.
func LatestVersion() (uint, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}
	var latest uint
	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("parse migration name %q: %w", e.Name(), err)
		}
		if uint(v) > latest {
			latest = uint(v)
		}
	}
	return latest, nil
}
