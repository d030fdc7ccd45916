// Package db provides database schema migration management.
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// migration is one embedded schema migration. Statements run inside a single
// transaction together with the schema_migrations bookkeeping row.
type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations holds the full schema history, ordered by version.
var migrations = []migration{
	{
		Version:     1,
		Description: "create child_profile, memories and growth_data",
		SQL: `
		CREATE TABLE IF NOT EXISTS child_profile (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			dob TEXT NOT NULL DEFAULT '',
			birth_time TEXT NOT NULL DEFAULT '',
			hospital_name TEXT NOT NULL DEFAULT '',
			birth_location TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT 'boy' CHECK(gender IN ('boy', 'girl')),
			profile_image TEXT NOT NULL DEFAULT '',
			synced INTEGER NOT NULL DEFAULT 0 CHECK(synced IN (0, 1))
		);
		CREATE INDEX IF NOT EXISTS idx_profile_synced ON child_profile(synced);

		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			child_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			synced INTEGER NOT NULL DEFAULT 0 CHECK(synced IN (0, 1))
		);
		CREATE INDEX IF NOT EXISTS idx_memories_child ON memories(child_id);
		CREATE INDEX IF NOT EXISTS idx_memories_synced ON memories(synced);

		CREATE TABLE IF NOT EXISTS growth_data (
			id TEXT PRIMARY KEY,
			child_id TEXT NOT NULL,
			month INTEGER NOT NULL DEFAULT 0,
			height REAL NOT NULL DEFAULT 0,
			weight REAL NOT NULL DEFAULT 0,
			synced INTEGER NOT NULL DEFAULT 0 CHECK(synced IN (0, 1))
		);
		CREATE INDEX IF NOT EXISTS idx_growth_child ON growth_data(child_id);
		CREATE INDEX IF NOT EXISTS idx_growth_synced ON growth_data(synced);
		`,
	},
}

// Migrator applies embedded schema migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	_, err := m.db.Exec(query)
	return err
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Migrate applies all pending migrations in order.
func (m *Migrator) Migrate() error {
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	current, err := m.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", mig.Version, mig.Description, err)
		}
	}
	return nil
}

// apply runs one migration and records it, atomically.
func (m *Migrator) apply(mig migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(mig.SQL); err != nil {
		return err
	}

	sum := sha256.Sum256([]byte(mig.SQL))
	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
		mig.Version, time.Now().Unix(), mig.Description, hex.EncodeToString(sum[:]),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
