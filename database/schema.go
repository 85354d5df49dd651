package database

import (
	"context"
	"fmt"

	"malawiexplorer/analytics/logging"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS page_views (
		id UUID PRIMARY KEY,
		page_path TEXT NOT NULL,
		page_title TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT '',
		browser TEXT NOT NULL DEFAULT '',
		os TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_created_at ON page_views (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_session_id ON page_views (session_id)`,
	`CREATE TABLE IF NOT EXISTS visitor_sessions (
		session_id TEXT PRIMARY KEY,
		first_visit_at TIMESTAMPTZ NOT NULL,
		last_visit_at TIMESTAMPTZ NOT NULL,
		total_visits INTEGER NOT NULL DEFAULT 1,
		total_page_views INTEGER NOT NULL DEFAULT 1,
		device_type TEXT NOT NULL DEFAULT '',
		browser TEXT NOT NULL DEFAULT '',
		os TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		is_returning_visitor BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitor_sessions_last_visit ON visitor_sessions (last_visit_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		hashed_password BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS page_views (
		id TEXT PRIMARY KEY,
		page_path TEXT NOT NULL,
		page_title TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT '',
		browser TEXT NOT NULL DEFAULT '',
		os TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_created_at ON page_views (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_session_id ON page_views (session_id)`,
	`CREATE TABLE IF NOT EXISTS visitor_sessions (
		session_id TEXT PRIMARY KEY,
		first_visit_at INTEGER NOT NULL,
		last_visit_at INTEGER NOT NULL,
		total_visits INTEGER NOT NULL DEFAULT 1,
		total_page_views INTEGER NOT NULL DEFAULT 1,
		device_type TEXT NOT NULL DEFAULT '',
		browser TEXT NOT NULL DEFAULT '',
		os TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		is_returning_visitor INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitor_sessions_last_visit ON visitor_sessions (last_visit_at DESC)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func (c *DBClient) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if c.Dialect == SQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	logging.Debug().Str("driver", string(c.Dialect)).Int("statements", len(stmts)).Msg("schema applied")
	return nil
}
