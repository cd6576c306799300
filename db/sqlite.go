package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ConnectToSQLite initializes and returns a SQLite connection
func ConnectToSQLite(dbPath string) (*sql.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	log.Println("Connected to SQLite database")
	return db, nil
}

// InitializeSchema creates all the necessary tables if they don't exist
func InitializeSchema(db *sql.DB) error {
	// One JSON document per owner
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS contact_lists (
		owner_id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create contact_lists table: %w", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS geolocation_cache (
		id TEXT PRIMARY KEY,
		ip TEXT NOT NULL UNIQUE,
		city TEXT NOT NULL,
		region TEXT NOT NULL,
		country TEXT NOT NULL,
		country_code TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		timezone TEXT,
		provider TEXT NOT NULL,
		resolved_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create geolocation_cache table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_geolocation_cache_expires_at ON geolocation_cache(expires_at)`)
	if err != nil {
		return fmt.Errorf("failed to create geolocation_cache index: %w", err)
	}

	log.Println("Database schema initialized successfully")
	return nil
}
