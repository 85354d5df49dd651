package database

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Greatest and Least name the scalar max/min functions.
func (d Dialect) Greatest() string {
	if d == SQLite {
		return "MAX"
	}
	return "GREATEST"
}

func (d Dialect) Least() string {
	if d == SQLite {
		return "MIN"
	}
	return "LEAST"
}

// TimeArg encodes t for a timestamp column. SQLite columns hold UTC unix
// nanoseconds so that comparisons and MAX/MIN stay numeric.
func (d Dialect) TimeArg(t time.Time) any {
	if d == SQLite {
		return t.UTC().UnixNano()
	}
	return t.UTC()
}

// Time scans a timestamp column written with TimeArg.
type Time struct {
	time.Time
}

func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case int64:
		t.Time = time.Unix(0, v).UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into database.Time", src)
	}
	return nil
}

func (t *Time) parse(s string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(0, n).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("cannot parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (t Time) Value() (driver.Value, error) {
	return t.Time, nil
}
