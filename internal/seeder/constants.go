package seeder

import "time"

// Defaults applied by Config.
const (
	defaultHorses             = 50
	defaultActivitiesPerHorse = 5
	defaultDays               = 7
	defaultWorkers            = 8
	defaultTimeout            = 10 * time.Second
	defaultDrainTimeout       = 2 * time.Minute
)

// Submission tuning.
const (
	workerChannelMultiplier = 2
	maxSubmitAttempts       = 4
	retryBackoff            = 100 * time.Millisecond
	drainPollInterval       = 100 * time.Millisecond
	progressInterval        = time.Second
)

// Submission results.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)
