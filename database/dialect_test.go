package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b >= ? LIMIT ?"
	if got := Postgres.Rebind(q); got != "SELECT * FROM t WHERE a = $1 AND b >= $2 LIMIT $3" {
		t.Errorf("postgres rebind = %q", got)
	}
	if got := SQLite.Rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestTimeScan(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 8000, time.UTC)
	tests := []struct {
		name string
		src  any
	}{
		{"time", want.In(time.FixedZone("X", 3600))},
		{"nanos", want.UnixNano()},
		{"nanos text", []byte("1741064767000008000")},
		{"rfc3339", want.Format(time.RFC3339Nano)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			if err := got.Scan(tt.src); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if !got.Equal(want) || got.Location() != time.UTC {
				t.Errorf("got %v, want %v UTC", got.Time, want)
			}
		})
	}
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "nested", "analytics.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}
	var n int
	err = db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'page_views', 'visitor_sessions')`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("tables = %d, want 3", n)
	}
}
