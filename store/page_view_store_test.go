package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"malawiexplorer/analytics/database"
	"malawiexplorer/analytics/models"

	"github.com/google/uuid"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *database.DBClient {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func pageView(session, path string, at time.Time) *models.PageView {
	return &models.PageView{
		ID:         uuid.NewString(),
		PagePath:   path,
		PageTitle:  "Title of " + path,
		SessionID:  session,
		DeviceType: models.DeviceDesktop,
		Browser:    "Chrome",
		OS:         "Windows",
		CreatedAt:  at,
	}
}

func record(t *testing.T, s *PageViewStore, pv *models.PageView) *models.Session {
	t.Helper()
	sess, err := s.RecordPageView(context.Background(), pv)
	if err != nil {
		t.Fatalf("RecordPageView: %v", err)
	}
	return sess
}

func TestRecordPageViewCreatesOneSession(t *testing.T) {
	db := newTestDB(t)
	s := NewPageViewStore(db, 0)

	for i := 0; i < 5; i++ {
		record(t, s, pageView("S1", "/", base.Add(time.Duration(i)*time.Second)))
	}

	sess, err := s.Session(context.Background(), "S1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.TotalPageViews != 5 {
		t.Errorf("total_page_views = %d, want 5", sess.TotalPageViews)
	}
	if sess.TotalVisits != 1 {
		t.Errorf("total_visits = %d, want 1", sess.TotalVisits)
	}
	if !sess.FirstVisitAt.Equal(base) || !sess.LastVisitAt.Equal(base.Add(4*time.Second)) {
		t.Errorf("first/last = %v/%v", sess.FirstVisitAt, sess.LastVisitAt)
	}

	var rows int
	if err := db.DB.QueryRow(`SELECT COUNT(*) FROM visitor_sessions WHERE session_id = 'S1'`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("session rows = %d, want 1", rows)
	}
	views, err := s.PageViewsBetween(context.Background(), base, base.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != sess.TotalPageViews {
		t.Errorf("page view rows = %d, session says %d", len(views), sess.TotalPageViews)
	}
}

func TestLastVisitIsMonotonic(t *testing.T) {
	s := NewPageViewStore(newTestDB(t), 0)
	t2 := base.Add(10 * time.Minute)

	record(t, s, pageView("S1", "/a", t2))
	sess := record(t, s, pageView("S1", "/b", base))

	if !sess.LastVisitAt.Equal(t2) {
		t.Errorf("last_visit_at = %v, want %v", sess.LastVisitAt, t2)
	}
	if !sess.FirstVisitAt.Equal(base) {
		t.Errorf("first_visit_at = %v, want %v", sess.FirstVisitAt, base)
	}
	if sess.TotalPageViews != 2 {
		t.Errorf("total_page_views = %d, want 2", sess.TotalPageViews)
	}
}

func TestSessionFieldsCoalesce(t *testing.T) {
	s := NewPageViewStore(newTestDB(t), 0)

	first := pageView("S1", "/", base)
	first.DeviceType, first.Browser, first.OS = models.DeviceMobile, "Safari", "iOS"
	first.Country, first.City = "MW", "Lilongwe"
	record(t, s, first)

	blank := pageView("S1", "/history", base.Add(time.Second))
	blank.DeviceType, blank.Browser, blank.OS, blank.Country, blank.City = "", "", "", "", ""
	sess := record(t, s, blank)
	if sess.DeviceType != models.DeviceMobile || sess.Browser != "Safari" || sess.OS != "iOS" {
		t.Errorf("empty values overwrote device fields: %+v", sess)
	}
	if sess.Country != "MW" || sess.City != "Lilongwe" {
		t.Errorf("empty values overwrote location: %+v", sess)
	}

	newer := pageView("S1", "/", base.Add(2*time.Second))
	newer.Browser = "Chrome"
	sess = record(t, s, newer)
	if sess.Browser != "Chrome" {
		t.Errorf("browser = %q, want Chrome", sess.Browser)
	}
	if sess.City != "Lilongwe" {
		t.Errorf("city = %q, want Lilongwe", sess.City)
	}
}

func TestConcurrentRecordsForSameSession(t *testing.T) {
	s := NewPageViewStore(newTestDB(t), 0)
	const n = 25

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.RecordPageView(context.Background(), pageView("S1", fmt.Sprintf("/p%d", i%3), base.Add(time.Duration(i)*time.Millisecond)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordPageView: %v", err)
		}
	}

	sess, err := s.Session(context.Background(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.TotalPageViews != n {
		t.Errorf("total_page_views = %d, want %d", sess.TotalPageViews, n)
	}
	if !sess.LastVisitAt.Equal(base.Add((n - 1) * time.Millisecond)) {
		t.Errorf("last_visit_at = %v", sess.LastVisitAt)
	}
}

func TestVisitTimeout(t *testing.T) {
	tests := []struct {
		name          string
		timeout       time.Duration
		wantVisits    int
		wantReturning bool
	}{
		{"counting enabled", 30 * time.Minute, 2, true},
		{"counting disabled", 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPageViewStore(newTestDB(t), tt.timeout)
			record(t, s, pageView("S1", "/", base))
			record(t, s, pageView("S1", "/", base.Add(10*time.Minute)))
			sess := record(t, s, pageView("S1", "/", base.Add(50*time.Minute)))

			if sess.TotalVisits != tt.wantVisits {
				t.Errorf("total_visits = %d, want %d", sess.TotalVisits, tt.wantVisits)
			}
			if sess.IsReturningVisitor != tt.wantReturning {
				t.Errorf("is_returning_visitor = %v, want %v", sess.IsReturningVisitor, tt.wantReturning)
			}
			if sess.TotalPageViews != 3 {
				t.Errorf("total_page_views = %d, want 3", sess.TotalPageViews)
			}
		})
	}
}

func TestRecentSessions(t *testing.T) {
	s := NewPageViewStore(newTestDB(t), 0)
	for i := 0; i < 5; i++ {
		record(t, s, pageView(fmt.Sprintf("S%d", i), "/", base.Add(time.Duration(i)*time.Minute)))
	}
	// S0 becomes the most recent.
	record(t, s, pageView("S0", "/again", base.Add(time.Hour)))

	got, err := s.RecentSessions(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"S0", "S4", "S3"}
	if len(got) != len(want) {
		t.Fatalf("got %d sessions, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].SessionID != id {
			t.Errorf("sessions[%d] = %s, want %s", i, got[i].SessionID, id)
		}
	}
}

func TestSessionNotFound(t *testing.T) {
	s := NewPageViewStore(newTestDB(t), 0)
	if _, err := s.Session(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPageViewQueries(t *testing.T) {
	s := NewPageViewStore(newTestDB(t), 0)
	for i := 0; i < 4; i++ {
		record(t, s, pageView("S1", fmt.Sprintf("/p%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	since, err := s.PageViewsSince(context.Background(), base.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 2 || since[0].PagePath != "/p3" || since[1].PagePath != "/p2" {
		t.Errorf("PageViewsSince returned %+v", since)
	}

	between, err := s.PageViewsBetween(context.Background(), base.Add(time.Minute), base.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(between) != 2 || between[0].PagePath != "/p1" || between[1].PagePath != "/p2" {
		t.Errorf("PageViewsBetween returned %+v", between)
	}
	if between[0].CreatedAt.Location() != time.UTC {
		t.Errorf("created_at not UTC: %v", between[0].CreatedAt)
	}
}
