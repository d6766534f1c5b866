package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedMigrations embed.FS

// Migrate brings the local database up to the newest schema version.
// Migrations are additive only: a newer version may create stores but never
// drops or rewrites data persisted by an older one, so an upgraded client
// keeps everything it cached before the upgrade.
func Migrate(db *sql.DB) error {
	if db == nil {
		return errors.New("migration error: db is nil")
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}

// MigrateTo migrates up to a specific version. Used by tests that verify
// the additive-upgrade contract across schema versions.
func MigrateTo(db *sql.DB, version int64) error {
	if db == nil {
		return errors.New("migration error: db is nil")
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.UpTo(db, ".", version); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
