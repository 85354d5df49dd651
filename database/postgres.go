package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"malawiexplorer/analytics/config"
	"malawiexplorer/analytics/logging"

	_ "github.com/lib/pq"
)

// DBClient is the primary relational store. Queries are written with ?
// placeholders and passed through Dialect.Rebind.
type DBClient struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open connects to the database selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DBClient, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLiteDB(ctx, cfg.Path)
	case config.DriverPostgres:
		return NewPostgresDB(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewPostgresDB(ctx context.Context, cfg config.DatabaseConfig) (*DBClient, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	logging.Info().Str("driver", "postgres").Msg("connected to database")
	return &DBClient{DB: db, Dialect: Postgres}, nil
}

func (c *DBClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *DBClient) Close() {
	if c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		logging.Error().Err(err).Str("driver", string(c.Dialect)).Msg("error closing database connection")
		return
	}
	logging.Info().Str("driver", string(c.Dialect)).Msg("database connection closed")
}
