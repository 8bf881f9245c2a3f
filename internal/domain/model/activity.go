// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/paddock/internal/domain/recovery"
)

// Sentinel error kinds for activity validation.
var (
	ErrInvalidActivity = errors.New("invalid activity")
)

// Activity is a training session logged for a horse.
// Numeric fields left unset by the source are zero.
type Activity struct {
	ActivityID      string    // unique id for idempotency
	HorseID         string    // horse the session belongs to
	Workload        float64   // dimensionless training-load score
	DurationSeconds int64     // session duration
	DistanceMeters  float64   // distance covered, 0 when not tracked
	StartTime       time.Time // session start
}

// Validate checks the fields the pipeline relies on.
func (a Activity) Validate() error {
	switch {
	case strings.TrimSpace(a.HorseID) == "":
		return fmt.Errorf("%w: missing horse_id", ErrInvalidActivity)
	case a.StartTime.IsZero():
		return fmt.Errorf("%w: missing start_time", ErrInvalidActivity)
	case a.Workload < 0 || math.IsInf(a.Workload, 0):
		return fmt.Errorf("%w: workload must be a non-negative number", ErrInvalidActivity)
	case a.DurationSeconds < 0:
		return fmt.Errorf("%w: duration_seconds must not be negative", ErrInvalidActivity)
	case a.DistanceMeters < 0 || math.IsInf(a.DistanceMeters, 0):
		return fmt.Errorf("%w: distance must be a non-negative number", ErrInvalidActivity)
	}
	return nil
}

// Record projects the activity onto the calculator input.
func (a Activity) Record() recovery.Activity {
	return recovery.Activity{
		Workload:        a.Workload,
		DurationSeconds: a.DurationSeconds,
		DistanceMeters:  a.DistanceMeters,
		StartTime:       a.StartTime,
	}
}

// Records projects a slice of activities, preserving order.
func Records(activities []Activity) []recovery.Activity {
	out := make([]recovery.Activity, len(activities))
	for i, a := range activities {
		out[i] = a.Record()
	}
	return out
}
