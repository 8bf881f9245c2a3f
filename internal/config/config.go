// Package config defines service configuration and how it is loaded.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// PADDOCK_CONFIG, then PADDOCK_* environment variables with flat snake_case
// keys (PADDOCK_WORKER_COUNT -> worker_count).
package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/okian/paddock/internal/domain/recovery"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory ingest queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of store writers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many activity IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the in-memory store.
	ShardCount int `koanf:"shard_count"`

	// LookbackDays is the default recommendation window.
	LookbackDays int `koanf:"lookback_days"`

	// MaxLookbackDays caps the window a caller may request.
	MaxLookbackDays int `koanf:"max_lookback_days"`

	// StoreDriver selects the activity store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the data source of the sqlite and postgres stores.
	StoreDSN string `koanf:"store_dsn"`

	// KafkaBrokers is a comma separated broker list. Empty disables the consumer.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`
	KafkaGroupID string `koanf:"kafka_group_id"`

	// CORSAllowedOrigin is sent as Access-Control-Allow-Origin.
	CORSAllowedOrigin string `koanf:"cors_allowed_origin"`

	// Recovery overrides the built-in threshold table and messages.
	Recovery RecoveryConfig `koanf:"recovery"`
}

// RecoveryConfig is the file form of the recovery policy. Omitted parts fall
// back to the built-in policy.
type RecoveryConfig struct {
	Tiers    []TierConfig   `koanf:"tiers"`
	Messages MessagesConfig `koanf:"messages"`
}

// TierConfig is one threshold row. The bound of the last row is ignored.
type TierConfig struct {
	MaxAvgWorkload float64 `koanf:"max_avg_workload"`
	Level          string  `koanf:"level"`
	RestHours      int     `koanf:"rest_hours"`
	Message        string  `koanf:"message"`
}

// MessagesConfig holds the non-tier messages. Remaining must contain {hours}.
type MessagesConfig struct {
	Rested     string `koanf:"rested"`
	Remaining  string `koanf:"remaining"`
	Sufficient string `koanf:"sufficient"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         10_000,
		WorkerCount:       runtime.NumCPU() * 2,
		DedupeSize:        50_000,
		ShardCount:        64,
		LookbackDays:      recovery.DefaultLookbackDays,
		MaxLookbackDays:   90,
		StoreDriver:       "memory",
		KafkaTopic:        "horse-activities",
		KafkaGroupID:      "paddock",
		CORSAllowedOrigin: "*",
	}
}

// Brokers splits KafkaBrokers, dropping blanks.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// RecoveryPolicy builds the recovery policy, using the built-in table and
// messages where the configuration leaves them out, and validates it.
func (c *Config) RecoveryPolicy() (recovery.Config, error) {
	policy := recovery.DefaultConfig()
	policy.LookbackDays = c.LookbackDays

	if len(c.Recovery.Tiers) > 0 {
		policy.Tiers = make([]recovery.Tier, len(c.Recovery.Tiers))
		for i, t := range c.Recovery.Tiers {
			policy.Tiers[i] = recovery.Tier{
				MaxAvgWorkload: t.MaxAvgWorkload,
				Level:          recovery.Level(strings.TrimSpace(t.Level)),
				RestHours:      t.RestHours,
				Message:        t.Message,
			}
		}
		policy.Tiers[len(policy.Tiers)-1].MaxAvgWorkload = math.Inf(1)
	}

	m := c.Recovery.Messages
	if m.Rested != "" {
		policy.Messages.Rested = m.Rested
	}
	if m.Remaining != "" {
		policy.Messages.Remaining = m.Remaining
	}
	if m.Sufficient != "" {
		policy.Messages.Sufficient = m.Sufficient
	}

	if err := policy.Validate(); err != nil {
		return recovery.Config{}, err
	}
	return policy, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxLookbackDays <= 0:
		return fmt.Errorf("%w: max_lookback_days must be positive", ErrInvalidConfig)
	case c.LookbackDays <= 0 || c.LookbackDays > c.MaxLookbackDays:
		return fmt.Errorf("%w: lookback_days must be between 1 and %d", ErrInvalidConfig, c.MaxLookbackDays)
	}

	switch strings.ToLower(c.StoreDriver) {
	case "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.StoreDSN) == "" {
			return fmt.Errorf("%w: store_dsn is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	if _, err := c.RecoveryPolicy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
