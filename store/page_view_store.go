package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"malawiexplorer/analytics/database"
	"malawiexplorer/analytics/models"
)

var ErrNotFound = errors.New("not found")

const pageViewColumns = `id, page_path, page_title, session_id, user_agent, referrer, ip_address,
	device_type, browser, os, country, city, created_at`

const sessionColumns = `session_id, first_visit_at, last_visit_at, total_visits, total_page_views,
	device_type, browser, os, country, city, is_returning_visitor`

const insertPageViewSQL = `
	INSERT INTO page_views (` + pageViewColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// The first two verbs are the dialect's scalar max and min functions. In the
// update branch visitor_sessions.* still refers to the row before the update.
const upsertSessionTmpl = `
	INSERT INTO visitor_sessions (` + sessionColumns + `)
	VALUES (?, ?, ?, 1, 1, ?, ?, ?, ?, ?, FALSE)
	ON CONFLICT (session_id) DO UPDATE SET
		first_visit_at = %[2]s(visitor_sessions.first_visit_at, excluded.first_visit_at),
		last_visit_at = %[1]s(visitor_sessions.last_visit_at, excluded.last_visit_at),
		total_page_views = visitor_sessions.total_page_views + 1,
		total_visits = visitor_sessions.total_visits
			+ CASE WHEN visitor_sessions.last_visit_at < ? THEN 1 ELSE 0 END,
		is_returning_visitor = CASE WHEN visitor_sessions.last_visit_at < ?
			THEN TRUE ELSE visitor_sessions.is_returning_visitor END,
		device_type = COALESCE(NULLIF(excluded.device_type, ''), visitor_sessions.device_type),
		browser = COALESCE(NULLIF(excluded.browser, ''), visitor_sessions.browser),
		os = COALESCE(NULLIF(excluded.os, ''), visitor_sessions.os),
		country = COALESCE(NULLIF(excluded.country, ''), visitor_sessions.country),
		city = COALESCE(NULLIF(excluded.city, ''), visitor_sessions.city)
	RETURNING ` + sessionColumns

// PageViewStore persists page views and maintains the per-session aggregate.
type PageViewStore struct {
	db           *database.DBClient
	visitTimeout time.Duration

	insertPageView string
	upsertSession  string
	since          string
	between        string
	recent         string
	byID           string
}

// NewPageViewStore builds a store over db. A page view arriving more than
// visitTimeout after the session's last activity starts a new visit; zero
// disables visit counting so total_visits stays at 1.
func NewPageViewStore(db *database.DBClient, visitTimeout time.Duration) *PageViewStore {
	d := db.Dialect
	return &PageViewStore{
		db:             db,
		visitTimeout:   visitTimeout,
		insertPageView: d.Rebind(insertPageViewSQL),
		upsertSession:  d.Rebind(fmt.Sprintf(upsertSessionTmpl, d.Greatest(), d.Least())),
		since: d.Rebind(`SELECT ` + pageViewColumns + ` FROM page_views
			WHERE created_at >= ? ORDER BY created_at DESC`),
		between: d.Rebind(`SELECT ` + pageViewColumns + ` FROM page_views
			WHERE created_at >= ? AND created_at <= ? ORDER BY created_at ASC`),
		recent: d.Rebind(`SELECT ` + sessionColumns + ` FROM visitor_sessions
			ORDER BY last_visit_at DESC, session_id ASC LIMIT ?`),
		byID: d.Rebind(`SELECT ` + sessionColumns + ` FROM visitor_sessions WHERE session_id = ?`),
	}
}

// RecordPageView stores pv and applies the session merge in one transaction,
// returning the session as it stands after the merge. Concurrent calls for
// the same session serialize on the session row.
func (s *PageViewStore) RecordPageView(ctx context.Context, pv *models.PageView) (*models.Session, error) {
	d := s.db.Dialect
	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, s.insertPageView,
		pv.ID, pv.PagePath, pv.PageTitle, pv.SessionID, pv.UserAgent, pv.Referrer, pv.IPAddress,
		pv.DeviceType, pv.Browser, pv.OS, pv.Country, pv.City, d.TimeArg(pv.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert page view: %w", err)
	}

	newVisitBefore := d.TimeArg(s.newVisitThreshold(pv.CreatedAt))
	row := tx.QueryRowContext(ctx, s.upsertSession,
		pv.SessionID, d.TimeArg(pv.CreatedAt), d.TimeArg(pv.CreatedAt),
		pv.DeviceType, pv.Browser, pv.OS, pv.Country, pv.City,
		newVisitBefore, newVisitBefore,
	)
	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page view: %w", err)
	}
	return session, nil
}

// newVisitThreshold is the last-activity time before which an event at t
// opens a new visit. With visit counting disabled it predates every event.
func (s *PageViewStore) newVisitThreshold(t time.Time) time.Time {
	if s.visitTimeout <= 0 {
		return time.Unix(0, 0).UTC()
	}
	return t.Add(-s.visitTimeout)
}

// PageViewsSince returns page views created at or after since, newest first.
func (s *PageViewStore) PageViewsSince(ctx context.Context, since time.Time) ([]models.PageView, error) {
	return s.queryPageViews(ctx, s.since, s.db.Dialect.TimeArg(since))
}

// PageViewsBetween returns page views in [start, end], oldest first.
func (s *PageViewStore) PageViewsBetween(ctx context.Context, start, end time.Time) ([]models.PageView, error) {
	d := s.db.Dialect
	return s.queryPageViews(ctx, s.between, d.TimeArg(start), d.TimeArg(end))
}

func (s *PageViewStore) queryPageViews(ctx context.Context, query string, args ...any) ([]models.PageView, error) {
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page views: %w", err)
	}
	defer rows.Close()

	var views []models.PageView
	for rows.Next() {
		var (
			pv        models.PageView
			createdAt database.Time
		)
		if err := rows.Scan(&pv.ID, &pv.PagePath, &pv.PageTitle, &pv.SessionID, &pv.UserAgent,
			&pv.Referrer, &pv.IPAddress, &pv.DeviceType, &pv.Browser, &pv.OS,
			&pv.Country, &pv.City, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan page view: %w", err)
		}
		pv.CreatedAt = createdAt.Time
		views = append(views, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during page view query: %w", err)
	}
	return views, nil
}

// RecentSessions returns up to limit sessions, most recently active first.
func (s *PageViewStore) RecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	rows, err := s.db.DB.QueryContext(ctx, s.recent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.Session, 0, limit)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during session query: %w", err)
	}
	return sessions, nil
}

// Session looks up a single session. It returns ErrNotFound when absent.
func (s *PageViewStore) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := scanSession(s.db.DB.QueryRowContext(ctx, s.byID, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

func (s *PageViewStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess        models.Session
		first, last database.Time
	)
	err := row.Scan(&sess.SessionID, &first, &last, &sess.TotalVisits, &sess.TotalPageViews,
		&sess.DeviceType, &sess.Browser, &sess.OS, &sess.Country, &sess.City, &sess.IsReturningVisitor)
	if err != nil {
		return nil, err
	}
	sess.FirstVisitAt = first.Time
	sess.LastVisitAt = last.Time
	return &sess, nil
}
