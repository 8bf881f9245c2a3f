//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/okian/paddock/internal/adapters/repository"
	"github.com/okian/paddock/internal/domain/model"
)

func TestPostgresStoreWindow(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("paddock"),
		postgrescontainer.WithUsername("paddock"),
		postgrescontainer.WithPassword("paddock"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	store, err := repository.OpenPostgres(ctx, connStr, repository.WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	horseID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, hoursAgo := range []int{200, 3, 30, 12} {
		require.NoError(t, store.Add(ctx, model.Activity{
			ActivityID:      uuid.NewString(),
			HorseID:         horseID,
			Workload:        float64(40 + i),
			DurationSeconds: 1800,
			DistanceMeters:  6000,
			StartTime:       now.Add(-time.Duration(hoursAgo) * time.Hour),
		}))
	}

	got, err := store.Recent(ctx, horseID, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.True(t, got[0].StartTime.Equal(now.Add(-3*time.Hour)))
	require.True(t, got[2].StartTime.Equal(now.Add(-30*time.Hour)))

	// Rows written by other producers may leave numeric columns NULL.
	_, err = pgxPool(t, ctx, connStr).Exec(ctx,
		`INSERT INTO activities (id, horse_id, start_time) VALUES ($1, $2, $3)`,
		uuid.NewString(), horseID, now.Add(-time.Hour))
	require.NoError(t, err)

	got, err = store.Recent(ctx, horseID, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Zero(t, got[0].Workload)
	require.Zero(t, got[0].DurationSeconds)
	require.Zero(t, got[0].DistanceMeters)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func pgxPool(t *testing.T, ctx context.Context, connStr string) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
