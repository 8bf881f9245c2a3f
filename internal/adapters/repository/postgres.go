package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/pkg/metrics"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	horse_id TEXT NOT NULL,
	workload DOUBLE PRECISION,
	duration_seconds BIGINT,
	distance DOUBLE PRECISION,
	start_time TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_horse_start ON activities (horse_id, start_time DESC);`

// PostgresStore reads and writes the activities table in Postgres.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// OpenPostgres connects to dsn, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	s := newSettings(opts)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	cfg.MaxConns = s.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	store := NewPostgresStore(pool, opts...)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wraps an existing pool. The caller owns the schema.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	s := newSettings(opts)
	return &PostgresStore{pool: pool, timeout: s.queryTimeout}
}

// EnsureSchema creates the activities table and its index when missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// Add upserts an activity by id.
func (p *PostgresStore) Add(ctx context.Context, a model.Activity) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const stmt = `INSERT INTO activities (id, horse_id, workload, duration_seconds, distance, start_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			horse_id = EXCLUDED.horse_id,
			workload = EXCLUDED.workload,
			duration_seconds = EXCLUDED.duration_seconds,
			distance = EXCLUDED.distance,
			start_time = EXCLUDED.start_time`

	_, err := p.pool.Exec(ctx, stmt,
		a.ActivityID, a.HorseID, a.Workload, a.DurationSeconds, a.DistanceMeters, a.StartTime.UTC())
	if err != nil {
		metrics.RecordStoreError("write")
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// Recent returns the horse's activities started at or after since, newest first.
func (p *PostgresStore) Recent(ctx context.Context, horseID string, since time.Time) ([]model.Activity, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const query = `SELECT id, horse_id, COALESCE(workload, 0), COALESCE(duration_seconds, 0), COALESCE(distance, 0), start_time
		FROM activities
		WHERE horse_id = $1 AND start_time >= $2
		ORDER BY start_time DESC, id ASC`

	rows, err := p.pool.Query(ctx, query, horseID, since.UTC())
	if err != nil {
		metrics.RecordStoreError("query")
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ActivityID, &a.HorseID, &a.Workload, &a.DurationSeconds, &a.DistanceMeters, &a.StartTime); err != nil {
			metrics.RecordStoreError("query")
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.StartTime = a.StartTime.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("query")
		return nil, fmt.Errorf("iterating activities: %w", err)
	}
	return out, nil
}

// Count returns the number of stored activities.
func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting activities: %w", err)
	}
	return n, nil
}

// Close closes the pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
