// Package calllog records one entry per snippet delivered to a resolving
// request and answers the read-side aggregations (hourly buckets, 24h
// totals) behind the analytics endpoints. Writes are fire-and-forget with
// respect to bundle delivery.
package calllog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/injectly/injectly/internal/db"
)

// Entry is one successful delivery of a script.
type Entry struct {
	ScriptID  int64
	Timestamp time.Time
}

type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// Bucket is one hour of delivery counts.
type Bucket struct {
	Hour  string `json:"hour"`
	Count int64  `json:"count"`
}

// Stats aggregates a script's call log over the trailing 24 hours.
type Stats struct {
	ScriptID int64    `json:"scriptId"`
	Total24h int64    `json:"total24h"`
	Hourly   []Bucket `json:"hourly"`
}

type SQLiteLogger struct {
	db *sql.DB
}

func NewSQLiteLogger(db *sql.DB) (*SQLiteLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &SQLiteLogger{db: db}, nil
}

func (l *SQLiteLogger) Log(ctx context.Context, entry Entry) error {
	if entry.ScriptID <= 0 {
		return fmt.Errorf("script id is required")
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	q := dbpkg.NewQueries(l.db)
	if _, err := q.InsertCallLog(ctx, entry.ScriptID, dbpkg.FormatTimestamp(ts)); err != nil {
		return fmt.Errorf("insert call log entry: %w", err)
	}
	return nil
}

// ScriptStats aggregates call_log rows for one script since now-24h.
func (l *SQLiteLogger) ScriptStats(ctx context.Context, scriptID int64, now time.Time) (Stats, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	since := dbpkg.FormatTimestamp(now.Add(-24 * time.Hour))

	q := dbpkg.NewQueries(l.db)
	total, err := q.CountCallsSince(ctx, scriptID, since)
	if err != nil {
		return Stats{}, err
	}
	counts, err := q.HourlyCallCounts(ctx, scriptID, since)
	if err != nil {
		return Stats{}, err
	}

	hourly := make([]Bucket, 0, len(counts))
	for _, c := range counts {
		hourly = append(hourly, Bucket{Hour: c.Hour, Count: c.Count})
	}
	return Stats{ScriptID: scriptID, Total24h: total, Hourly: hourly}, nil
}
