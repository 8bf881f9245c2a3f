// Package repository stores training activities and serves the per-horse
// window reads the recovery calculator needs.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/paddock/internal/domain/model"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store provides read/write access to activities.
type Store interface {
	// Add inserts the activity, replacing any stored activity with the same ActivityID.
	Add(ctx context.Context, a model.Activity) error

	// Recent returns the activities of horseID that started at or after since,
	// most recent first.
	Recent(ctx context.Context, horseID string, since time.Time) ([]model.Activity, error)

	// Count returns the number of stored activities.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// Open builds the Store selected by driver. dsn is ignored by the memory store.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn, opts...)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
