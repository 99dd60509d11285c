// internal/store/sqlite.go
package store

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// NewSQLiteStore opens (creating if necessary) a SQLite-backed store. This
// is the default backend; a single-file database matches the single-writer
// access pattern of the reconciliation pipeline.
func NewSQLiteStore(databasePath string) (*SQLStore, error) {
	if databasePath == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}

	if dir := filepath.Dir(databasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := databasePath + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	s, err := newSQLStore("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single writer.
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)

	return s, nil
}
