package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.gin_mode %q must be debug, release or test", c.Server.GinMode))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET_KEY) is required"))
	}

	a := c.Analytics
	if a.ActiveWindow <= 0 || a.DayWindow <= 0 {
		errs = append(errs, errors.New("analytics windows must be positive"))
	}
	if a.ActiveWindow > a.DayWindow {
		errs = append(errs, errors.New("analytics.active_window must not exceed analytics.day_window"))
	}
	if a.TopPages <= 0 || a.SessionLimit <= 0 {
		errs = append(errs, errors.New("analytics.top_pages and analytics.session_limit must be positive"))
	}
	if a.MaxHistoryDays <= 0 || a.DefaultHistoryDays <= 0 || a.DefaultHistoryDays > a.MaxHistoryDays {
		errs = append(errs, errors.New("analytics history days must satisfy 0 < default <= max"))
	}
	if a.VisitTimeout < 0 {
		errs = append(errs, errors.New("analytics.visit_timeout must not be negative"))
	}
	switch a.HistorySource {
	case HistorySourceStore:
	case HistorySourceWarehouse:
		if !c.ClickHouse.Enabled {
			errs = append(errs, errors.New("analytics.history_source=warehouse requires clickhouse.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown analytics.history_source %q", a.HistorySource))
	}

	if c.ClickHouse.Enabled && (c.ClickHouse.BatchSize <= 0 || c.ClickHouse.QueueSize <= 0 || c.ClickHouse.FlushInterval <= 0) {
		errs = append(errs, errors.New("clickhouse batch_size, queue_size and flush_interval must be positive"))
	}
	if c.Ingest.RatePerMinute <= 0 || c.Ingest.Burst <= 0 {
		errs = append(errs, errors.New("ingest.rate_per_minute and ingest.burst must be positive"))
	}
	if c.Dashboard.PollInterval <= 0 {
		errs = append(errs, errors.New("dashboard.poll_interval must be positive"))
	}

	return errors.Join(errs...)
}
