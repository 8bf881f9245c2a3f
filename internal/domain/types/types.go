// Package types contains the wire shapes shared by the HTTP API, the Kafka
// consumer and the seeding client.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/internal/domain/recovery"
)

// ErrInvalidPayload marks payloads that cannot be turned into an activity.
var ErrInvalidPayload = errors.New("invalid activity payload")

// RecoveryRequest is the body of POST /recovery.
type RecoveryRequest struct {
	HorseID string `json:"horseId"`
	Days    *int   `json:"days,omitempty"`
}

// RecoveryResponse wraps a recommendation the way the recovery endpoint
// returns it.
type RecoveryResponse struct {
	Success bool                     `json:"success"`
	Data    *recovery.Recommendation `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// ActivityPayload is an activity as submitted over HTTP or Kafka. Optional
// numeric fields are pointers so that absent values are distinguishable
// from explicit zeros; both end up as zero in the model.
type ActivityPayload struct {
	ActivityID      string   `json:"activity_id,omitempty"`
	HorseID         string   `json:"horse_id"`
	Workload        *float64 `json:"workload,omitempty"`
	DurationSeconds *int64   `json:"duration_seconds,omitempty"`
	Distance        *float64 `json:"distance,omitempty"`
	StartTime       string   `json:"start_time"`
}

// ToModel converts the payload, parsing start_time as RFC3339.
func (p ActivityPayload) ToModel() (model.Activity, error) {
	if strings.TrimSpace(p.StartTime) == "" {
		return model.Activity{}, fmt.Errorf("%w: missing start_time", ErrInvalidPayload)
	}
	start, err := time.Parse(time.RFC3339, p.StartTime)
	if err != nil {
		return model.Activity{}, fmt.Errorf("%w: start_time must be RFC3339", ErrInvalidPayload)
	}
	a := model.Activity{
		ActivityID: strings.TrimSpace(p.ActivityID),
		HorseID:    strings.TrimSpace(p.HorseID),
		StartTime:  start,
	}
	if p.Workload != nil {
		a.Workload = *p.Workload
	}
	if p.DurationSeconds != nil {
		a.DurationSeconds = *p.DurationSeconds
	}
	if p.Distance != nil {
		a.DistanceMeters = *p.Distance
	}
	return a, nil
}

// FromModel builds the wire form of a.
func FromModel(a model.Activity) ActivityPayload {
	workload, duration, distance := a.Workload, a.DurationSeconds, a.DistanceMeters
	return ActivityPayload{
		ActivityID:      a.ActivityID,
		HorseID:         a.HorseID,
		Workload:        &workload,
		DurationSeconds: &duration,
		Distance:        &distance,
		StartTime:       a.StartTime.UTC().Format(time.RFC3339Nano),
	}
}

// Ack acknowledges an activity submission.
type Ack struct {
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
	ActivityID string `json:"activity_id"`
}
