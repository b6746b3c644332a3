package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates the SQLite database file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

const schemaMeters = `
CREATE TABLE IF NOT EXISTS meters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    serial_number TEXT UNIQUE NOT NULL,
    meter_type TEXT NOT NULL,
    unit TEXT NOT NULL,
    location TEXT,
    organization_id INTEGER NOT NULL,
    expected_reading REAL,
    custom_prompt TEXT
);
`

const schemaDevices = `
CREATE TABLE IF NOT EXISTS devices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    serial_number TEXT UNIQUE NOT NULL,
    organization_id INTEGER NOT NULL,
    firmware_version TEXT,
    status TEXT NOT NULL,
    meter_id INTEGER REFERENCES meters(id),
    created_at TIMESTAMP NOT NULL
);
`

const schemaConnectivity = `
CREATE TABLE IF NOT EXISTS device_connectivity (
    device_id INTEGER PRIMARY KEY REFERENCES devices(id) ON DELETE CASCADE,
    last_seen TIMESTAMP NOT NULL,
    ip_address TEXT,
    meta TEXT
);
`

const schemaSessions = `
CREATE TABLE IF NOT EXISTS installation_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    status TEXT NOT NULL,
    device_id INTEGER NOT NULL REFERENCES devices(id),
    meter_id INTEGER NOT NULL REFERENCES meters(id),
    installer_id INTEGER NOT NULL,
    organization_id INTEGER NOT NULL,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);
`

const schemaChecks = `
CREATE TABLE IF NOT EXISTS validation_checks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES installation_sessions(id) ON DELETE CASCADE,
    check_type TEXT NOT NULL,
    passed BOOLEAN NOT NULL,
    confidence REAL NOT NULL,
    message TEXT NOT NULL,
    details TEXT,
    checked_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validation_checks_session ON validation_checks(session_id, checked_at);
`

const schemaEvents = `
CREATE TABLE IF NOT EXISTS installation_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    session_id INTEGER,
    device_serial TEXT,
    message TEXT NOT NULL,
    meta TEXT
);
CREATE INDEX IF NOT EXISTS idx_installation_events_time ON installation_events(occurred_at);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaUsers,
		schemaMeters,
		schemaDevices,
		schemaConnectivity,
		schemaSessions,
		schemaChecks,
		schemaEvents,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
