package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"malawiexplorer/analytics/logging"

	_ "modernc.org/sqlite"
)

// NewSQLiteDB opens an embedded database file, creating parent directories
// as needed.
func NewSQLiteDB(ctx context.Context, path string) (*DBClient, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// Single writer; also serializes the session upsert.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	logging.Debug().Str("driver", "sqlite").Str("path", path).Msg("connected to database")
	return &DBClient{DB: db, Dialect: SQLite}, nil
}
