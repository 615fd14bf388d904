// Package audit implements the append-only command/invocation audit trail:
// a deliberately small slice of the teacher's internal/store (CORE-003),
// scoped to the audit log the teacher's store docstring names — not full
// state persistence (spec.md Non-goals forbid persisting monitoring
// history; recording executed commands is in scope). Schema evolution uses
// golang-migrate/migrate/v4 instead of the teacher's hand-rolled
// runMigrations, grounded on randybias-nightcrier's internal/storage
// (same modernc.org/sqlite + golang-migrate/v4/database/sqlite3 pairing).
package audit

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // pure-Go sqlite driver, registered as "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens (creating if absent) the sqlite audit database at path, enables
// WAL mode for concurrent readers (teacher's store.Open does the same), and
// applies any pending migrations.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("audit: open embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("audit: create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("audit: create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("audit: run migrations: %w", err)
	}
	return nil
}
