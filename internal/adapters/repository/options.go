package repository

import "time"

const (
	defaultShardCount   = 64
	defaultMaxConns     = 10
	defaultQueryTimeout = 5 * time.Second
)

type settings struct {
	shardCount   int
	maxConns     int32
	queryTimeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		shardCount:   defaultShardCount,
		maxConns:     defaultMaxConns,
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a Store.
type Option func(*settings)

// WithShardCount sets the number of lock shards of the memory store.
func WithShardCount(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithMaxConns caps the Postgres connection pool (and SQLite open connections).
func WithMaxConns(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxConns = int32(n)
		}
	}
}

// WithQueryTimeout bounds each SQL statement.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}
