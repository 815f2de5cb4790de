package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Options tunes how the database file is opened.
type Options struct {
	JournalMode string // empty = wal
}

// Open opens the database at path with default options.
func Open(path string) (*SQLiteStore, *sql.DB, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions opens (creating if needed) the database at path, runs
// migrations, and returns a ready-to-use store and the underlying *sql.DB.
// The caller closes both.
func OpenWithOptions(path string, opts Options) (*SQLiteStore, *sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	runner, err := NewMigrationRunner(db).WithJournalMode(opts.JournalMode)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, db, nil
}
