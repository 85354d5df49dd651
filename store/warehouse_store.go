package store

import (
	"context"
	"fmt"
	"time"

	"malawiexplorer/analytics/database"
	"malawiexplorer/analytics/logging"
	"malawiexplorer/analytics/models"
)

const warehouseSchema = `
	CREATE TABLE IF NOT EXISTS page_view_events (
		event_id String,
		session_id String,
		page_path String,
		page_title String,
		referrer String,
		user_agent String,
		ip_address String,
		device_type LowCardinality(String),
		browser LowCardinality(String),
		os LowCardinality(String),
		country LowCardinality(String),
		city String,
		created_at DateTime64(6, 'UTC')
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(created_at)
	ORDER BY (created_at, session_id)`

// WarehouseStore mirrors page views into ClickHouse for long-range reporting.
type WarehouseStore struct {
	DB *database.ClickHouseClient
}

func NewWarehouseStore(ch *database.ClickHouseClient) *WarehouseStore {
	return &WarehouseStore{DB: ch}
}

func (s *WarehouseStore) EnsureSchema(ctx context.Context) error {
	if err := s.DB.Conn.Exec(ctx, warehouseSchema); err != nil {
		return fmt.Errorf("failed to create page_view_events: %w", err)
	}
	return nil
}

// InsertPageViews writes one batch. Rows that fail to append are skipped and
// logged; the batch itself either lands whole or returns an error.
func (s *WarehouseStore) InsertPageViews(ctx context.Context, views []models.PageView) error {
	if len(views) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO page_view_events (
			event_id, session_id, page_path, page_title, referrer, user_agent, ip_address,
			device_type, browser, os, country, city, created_at
		)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	appended := 0
	for _, pv := range views {
		err := batch.Append(
			pv.ID, pv.SessionID, pv.PagePath, pv.PageTitle, pv.Referrer, pv.UserAgent, pv.IPAddress,
			pv.DeviceType, pv.Browser, pv.OS, pv.Country, pv.City, pv.CreatedAt.UTC(),
		)
		if err != nil {
			logging.Warn().Err(err).Str("event_id", pv.ID).Msg("skipping page view in warehouse batch")
			continue
		}
		appended++
	}
	if appended == 0 {
		return batch.Abort()
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// DailyRollup buckets page views in [start, end] by UTC calendar day.
func (s *WarehouseStore) DailyRollup(ctx context.Context, start, end time.Time) ([]models.DailyStat, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT
			toDate(created_at, 'UTC') AS day,
			count() AS page_views,
			uniqExact(session_id) AS unique_visitors
		FROM page_view_events
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY day
		ORDER BY day ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily rollup: %w", err)
	}
	defer rows.Close()

	stats := []models.DailyStat{}
	for rows.Next() {
		var (
			day             time.Time
			views, visitors uint64
		)
		if err := rows.Scan(&day, &views, &visitors); err != nil {
			return nil, fmt.Errorf("failed to scan daily rollup row: %w", err)
		}
		stats = append(stats, models.DailyStat{
			Date:           day.UTC().Format(time.DateOnly),
			PageViews:      int64(views),
			UniqueVisitors: int64(visitors),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during daily rollup query: %w", err)
	}
	return stats, nil
}

// TopPagePaths ranks paths in [start, end] by views, pairing each with its
// most recent title.
func (s *WarehouseStore) TopPagePaths(ctx context.Context, start, end time.Time, limit int) ([]models.PagePathCount, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT
			page_path,
			argMax(page_title, created_at) AS title,
			count() AS views
		FROM page_view_events
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY page_path
		ORDER BY views DESC, page_path ASC
		LIMIT ?`, start.UTC(), end.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top page paths: %w", err)
	}
	defer rows.Close()

	results := []models.PagePathCount{}
	for rows.Next() {
		var (
			r     models.PagePathCount
			count uint64
		)
		if err := rows.Scan(&r.Path, &r.Title, &count); err != nil {
			return nil, fmt.Errorf("failed to scan top page path row: %w", err)
		}
		if r.Title == "" {
			r.Title = r.Path
		}
		r.Count = int64(count)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during top page paths query: %w", err)
	}
	return results, nil
}

func (s *WarehouseStore) Ping(ctx context.Context) error {
	return s.DB.Conn.Ping(ctx)
}
