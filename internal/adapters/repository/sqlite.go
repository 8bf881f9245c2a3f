package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/pkg/metrics"

	_ "modernc.org/sqlite"
)

const defaultSQLiteDSN = "file:paddock.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		horse_id TEXT NOT NULL,
		workload REAL,
		duration_seconds INTEGER,
		distance REAL,
		start_time INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_horse_start ON activities(horse_id, start_time DESC)`,
}

// SQLiteStore persists activities in a local SQLite database.
// start_time is stored as unix milliseconds.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenSQLite opens (creating if needed) the database at dsn and runs migrations.
func OpenSQLite(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	s := newSettings(opts)
	if strings.TrimSpace(dsn) == "" {
		dsn = defaultSQLiteDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every connection to an in-memory database sees its own empty database.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(int(s.maxConns))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	for _, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return &SQLiteStore{db: db, timeout: s.queryTimeout}, nil
}

// Add upserts an activity by id.
func (s *SQLiteStore) Add(ctx context.Context, a model.Activity) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const stmt = `INSERT INTO activities (id, horse_id, workload, duration_seconds, distance, start_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			horse_id = excluded.horse_id,
			workload = excluded.workload,
			duration_seconds = excluded.duration_seconds,
			distance = excluded.distance,
			start_time = excluded.start_time`

	_, err := s.db.ExecContext(ctx, stmt,
		a.ActivityID, a.HorseID, a.Workload, a.DurationSeconds, a.DistanceMeters, a.StartTime.UnixMilli())
	if err != nil {
		metrics.RecordStoreError("write")
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// Recent returns the horse's activities started at or after since, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, horseID string, since time.Time) ([]model.Activity, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `SELECT id, horse_id, COALESCE(workload, 0), COALESCE(duration_seconds, 0), COALESCE(distance, 0), start_time
		FROM activities
		WHERE horse_id = ? AND start_time >= ?
		ORDER BY start_time DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, horseID, since.UnixMilli())
	if err != nil {
		metrics.RecordStoreError("query")
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var (
			a       model.Activity
			startMs int64
		)
		if err := rows.Scan(&a.ActivityID, &a.HorseID, &a.Workload, &a.DurationSeconds, &a.DistanceMeters, &startMs); err != nil {
			metrics.RecordStoreError("query")
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.StartTime = time.UnixMilli(startMs).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("query")
		return nil, fmt.Errorf("iterating activities: %w", err)
	}
	return out, nil
}

// Count returns the number of stored activities.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting activities: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
