// Package seeder drives a running paddock service end to end: it generates
// synthetic horses and activities, submits them over HTTP, waits for the
// ingest queue to drain and checks the recommendations the service returns.
package seeder

import (
	"errors"
	"time"
)

// Errors reported by Run.
var (
	ErrUnhealthy    = errors.New("service is not healthy")
	ErrDrainTimeout = errors.New("ingest queue did not drain in time")
	ErrVerification = errors.New("recommendations do not match the expected values")
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL            string        // Base URL of the service
	Horses             int           // Number of horses to generate
	ActivitiesPerHorse int           // Activities generated for each horse
	Days               int           // Lookback window requested and used for start times
	Workers            int           // Number of concurrent HTTP workers
	Timeout            time.Duration // HTTP request timeout
	DrainTimeout       time.Duration // How long to wait for the service to store everything
	Seed               uint64        // Random seed, 0 picks one from the clock
	OutputFile         string        // Optional JSON dump of the generated activities
	Verbose            bool          // Enable verbose logging
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "http://localhost:9080"
	}
	if out.Horses <= 0 {
		out.Horses = defaultHorses
	}
	if out.ActivitiesPerHorse <= 0 {
		out.ActivitiesPerHorse = defaultActivitiesPerHorse
	}
	if out.Days <= 0 {
		out.Days = defaultDays
	}
	if out.Workers <= 0 {
		out.Workers = defaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultTimeout
	}
	if out.DrainTimeout <= 0 {
		out.DrainTimeout = defaultDrainTimeout
	}
	if out.Seed == 0 {
		out.Seed = uint64(time.Now().UnixNano())
	}
	return &out
}

// Stats holds run statistics.
type Stats struct {
	HorsesGenerated     int
	ActivitiesGenerated int
	ActivitiesSubmitted int
	ActivitiesAccepted  int
	ActivitiesDuplicate int
	ActivitiesFailed    int
	HorsesVerified      int
	HorsesSkipped       int
	Mismatches          int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
