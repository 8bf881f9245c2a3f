// Package recovery turns a window of logged activities into a rest
// recommendation for the horse that performed them.
//
// Compute is pure: it performs no I/O, keeps no state and returns the same
// Recommendation for the same activities, instant and policy. It is safe to
// call from any number of goroutines.
package recovery

import (
	"math"
	"time"
)

// Level is the workload classification derived from the average workload.
type Level string

// Workload levels, in ascending order of intensity.
const (
	LevelNone        Level = "none"
	LevelLight       Level = "light"
	LevelModerate    Level = "moderate"
	LevelIntense     Level = "intense"
	LevelVeryIntense Level = "very_intense"
)

// IsTier reports whether l can appear in a threshold table. LevelNone is
// reserved for the no-activity outcome.
func (l Level) IsTier() bool {
	switch l {
	case LevelLight, LevelModerate, LevelIntense, LevelVeryIntense:
		return true
	default:
		return false
	}
}

// Activity is a single logged training session.
type Activity struct {
	Workload        float64
	DurationSeconds int64
	DistanceMeters  float64
	StartTime       time.Time
}

// Stats aggregates the activities a recommendation was computed from.
type Stats struct {
	ActivitiesCount        int    `json:"activitiesCount"`
	AvgWorkload            string `json:"avgWorkload"`
	TotalDistanceKm        string `json:"totalDistanceKm"`
	TotalDurationFormatted string `json:"totalDurationFormatted"`
	HoursSinceLastActivity string `json:"hoursSinceLastActivity"`
}

// Recommendation is the outcome of Compute. RemainingHours is zero whenever
// CanRide is true.
type Recommendation struct {
	RecommendedRestHours int    `json:"recommendedRestHours"`
	WorkloadLevel        Level  `json:"workloadLevel"`
	Message              string `json:"message"`
	CanRide              bool   `json:"canRide"`
	RemainingHours       int    `json:"remainingHours"`
	Stats                *Stats `json:"stats,omitempty"`
}

// Compute builds the recommendation for activities as of now.
//
// Activities are expected to be the caller's lookback window ordered by
// StartTime descending. The most recent session is taken as the latest
// StartTime, which is the first element under that ordering. Missing or NaN
// numeric fields count as zero. cfg should satisfy Config.Validate; an empty
// threshold table is classified with DefaultTiers.
func Compute(activities []Activity, now time.Time, cfg Config) Recommendation {
	if len(activities) == 0 {
		return Recommendation{
			RecommendedRestHours: 0,
			WorkloadLevel:        LevelNone,
			Message:              cfg.Messages.Rested,
			CanRide:              true,
		}
	}

	agg := aggregate(activities)
	hoursSince := now.Sub(agg.lastStart).Hours()
	avg := agg.workload / float64(len(activities))

	tier := cfg.classify(avg)
	rec := Recommendation{
		RecommendedRestHours: tier.RestHours,
		WorkloadLevel:        tier.Level,
		CanRide:              hoursSince >= float64(tier.RestHours),
	}

	var clause string
	if rec.CanRide {
		clause = cfg.Messages.Sufficient
	} else {
		rec.RemainingHours = int(math.Ceil(float64(tier.RestHours) - hoursSince))
		clause = cfg.Messages.remaining(rec.RemainingHours)
	}
	rec.Message = joinMessage(tier.Message, clause)

	rec.Stats = &Stats{
		ActivitiesCount:        len(activities),
		AvgWorkload:            formatOneDecimal(avg),
		TotalDistanceKm:        formatKilometers(agg.distanceMeters),
		TotalDurationFormatted: FormatDuration(agg.durationSeconds),
		HoursSinceLastActivity: formatOneDecimal(hoursSince),
	}
	return rec
}

type totals struct {
	workload        float64
	distanceMeters  float64
	durationSeconds int64
	lastStart       time.Time
}

func aggregate(activities []Activity) totals {
	t := totals{lastStart: activities[0].StartTime}
	for _, a := range activities {
		t.workload += orZero(a.Workload)
		t.distanceMeters += orZero(a.DistanceMeters)
		t.durationSeconds += a.DurationSeconds
		if a.StartTime.After(t.lastStart) {
			t.lastStart = a.StartTime
		}
	}
	return t
}

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func joinMessage(head, clause string) string {
	switch {
	case head == "":
		return clause
	case clause == "":
		return head
	default:
		return head + " " + clause
	}
}
