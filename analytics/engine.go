// Package analytics computes dashboard metrics from stored page views.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"malawiexplorer/analytics/config"
	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/metrics"
	"malawiexplorer/analytics/models"
)

var ErrInvalidDays = errors.New("invalid number of days")

// Reader is the query surface the engine needs from the primary store.
type Reader interface {
	PageViewsSince(ctx context.Context, since time.Time) ([]models.PageView, error)
	PageViewsBetween(ctx context.Context, start, end time.Time) ([]models.PageView, error)
	RecentSessions(ctx context.Context, limit int) ([]models.Session, error)
	Session(ctx context.Context, sessionID string) (*models.Session, error)
}

// Warehouse serves long-range aggregates when ClickHouse is enabled.
type Warehouse interface {
	DailyRollup(ctx context.Context, start, end time.Time) ([]models.DailyStat, error)
	TopPagePaths(ctx context.Context, start, end time.Time, limit int) ([]models.PagePathCount, error)
}

type Engine struct {
	reader    Reader
	warehouse Warehouse
	cfg       config.AnalyticsConfig
	now       func() time.Time
}

type Option func(*Engine)

// WithWarehouse routes historical and top-page reads to w.
func WithWarehouse(w Warehouse) Option {
	return func(e *Engine) { e.warehouse = w }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(reader Reader, cfg config.AnalyticsConfig, opts ...Option) *Engine {
	defaults := config.Defaults().Analytics
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = defaults.ActiveWindow
	}
	if cfg.DayWindow <= 0 {
		cfg.DayWindow = defaults.DayWindow
	}
	if cfg.TopPages <= 0 {
		cfg.TopPages = defaults.TopPages
	}
	if cfg.SessionLimit <= 0 {
		cfg.SessionLimit = defaults.SessionLimit
	}
	if cfg.MaxHistoryDays <= 0 {
		cfg.MaxHistoryDays = defaults.MaxHistoryDays
	}
	if cfg.DefaultHistoryDays <= 0 {
		cfg.DefaultHistoryDays = defaults.DefaultHistoryDays
	}

	e := &Engine{reader: reader, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) DefaultHistoryDays() int { return e.cfg.DefaultHistoryDays }

// RealTime returns the live dashboard snapshot. A failed read yields a
// zeroed snapshot; the failure is only visible in logs and metrics.
func (e *Engine) RealTime(ctx context.Context) models.RealTimeSnapshot {
	now := e.now().UTC()
	start := time.Now()

	views, err := e.reader.PageViewsSince(ctx, now.Add(-e.cfg.DayWindow))
	metrics.RecordQuery("realtime", time.Since(start), err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("real-time analytics query failed")
		return models.EmptySnapshot(now)
	}
	return buildSnapshot(views, now, e.cfg.ActiveWindow, e.cfg.TopPages)
}

// Historical returns one bucket per UTC day with traffic in the last days
// days, oldest first.
func (e *Engine) Historical(ctx context.Context, days int) ([]models.DailyStat, error) {
	if days < 1 || days > e.cfg.MaxHistoryDays {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidDays, days, e.cfg.MaxHistoryDays)
	}
	end := e.now().UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)
	began := time.Now()

	var (
		stats []models.DailyStat
		err   error
	)
	if e.warehouse != nil {
		stats, err = e.warehouse.DailyRollup(ctx, start, end)
	} else {
		var views []models.PageView
		views, err = e.reader.PageViewsBetween(ctx, start, end)
		if err == nil {
			stats = dailyRollup(views)
		}
	}
	metrics.RecordQuery("historical", time.Since(began), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical analytics: %w", err)
	}
	return stats, nil
}

// Sessions lists the most recently active sessions.
func (e *Engine) Sessions(ctx context.Context) ([]models.Session, error) {
	began := time.Now()
	sessions, err := e.reader.RecentSessions(ctx, e.cfg.SessionLimit)
	metrics.RecordQuery("sessions", time.Since(began), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return sessions, nil
}

func (e *Engine) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return e.reader.Session(ctx, sessionID)
}

// TopPages ranks paths over an arbitrary window using the same ordering as
// the real-time snapshot.
func (e *Engine) TopPages(ctx context.Context, start, end time.Time, limit int) ([]models.PagePathCount, error) {
	if limit <= 0 {
		limit = e.cfg.TopPages
	}
	began := time.Now()

	var (
		pages []models.PagePathCount
		err   error
	)
	if e.warehouse != nil {
		pages, err = e.warehouse.TopPagePaths(ctx, start, end, limit)
	} else {
		var views []models.PageView
		views, err = e.reader.PageViewsBetween(ctx, start, end)
		if err == nil {
			pages = topPages(views, limit)
		}
	}
	metrics.RecordQuery("top_pages", time.Since(began), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load top pages: %w", err)
	}
	return pages, nil
}
