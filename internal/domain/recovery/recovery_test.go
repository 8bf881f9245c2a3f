package recovery_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/okian/paddock/internal/domain/recovery"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, time.March, 14, 18, 0, 0, 0, time.UTC)

// single returns one activity with the given workload that started hoursAgo.
func single(workload float64, hoursAgo float64) []recovery.Activity {
	return []recovery.Activity{{
		Workload:        workload,
		DurationSeconds: 1800,
		DistanceMeters:  5000,
		StartTime:       now.Add(-time.Duration(hoursAgo * float64(time.Hour))),
	}}
}

func TestCompute_EmptyWindow(t *testing.T) {
	Convey("Given no recent activity", t, func() {
		rec := recovery.Compute(nil, now, recovery.DefaultConfig())

		Convey("Then the horse is fully rested", func() {
			So(rec.RecommendedRestHours, ShouldEqual, 0)
			So(rec.WorkloadLevel, ShouldEqual, recovery.LevelNone)
			So(rec.CanRide, ShouldBeTrue)
			So(rec.RemainingHours, ShouldEqual, 0)
			So(rec.Message, ShouldEqual, "Aucune activité récente. Le cheval est bien reposé.")
		})

		Convey("And no stats are attached", func() {
			So(rec.Stats, ShouldBeNil)
			raw, err := json.Marshal(rec)
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, "stats")
		})

		Convey("And an empty non-nil slice behaves the same", func() {
			So(recovery.Compute([]recovery.Activity{}, now, recovery.DefaultConfig()), ShouldResemble, rec)
		})
	})
}

func TestCompute_ThresholdBoundaries(t *testing.T) {
	cases := []struct {
		avg   float64
		level recovery.Level
		rest  int
	}{
		{0, recovery.LevelLight, 12},
		{29.999, recovery.LevelLight, 12},
		{30.0, recovery.LevelModerate, 24},
		{59.999, recovery.LevelModerate, 24},
		{60.0, recovery.LevelIntense, 48},
		{79.999, recovery.LevelIntense, 48},
		{80.0, recovery.LevelVeryIntense, 72},
		{250, recovery.LevelVeryIntense, 72},
	}

	Convey("Given the default threshold table", t, func() {
		cfg := recovery.DefaultConfig()

		for _, tc := range cases {
			Convey("When the average workload is "+formatFloat(tc.avg), func() {
				rec := recovery.Compute(single(tc.avg, 1), now, cfg)

				Convey("Then the tier is "+string(tc.level), func() {
					So(rec.WorkloadLevel, ShouldEqual, tc.level)
					So(rec.RecommendedRestHours, ShouldEqual, tc.rest)
				})
			})
		}
	})
}

func TestCompute_AverageOverWindow(t *testing.T) {
	Convey("Given a light session after an intense one", t, func() {
		activities := []recovery.Activity{
			{Workload: 10, StartTime: now.Add(-2 * time.Hour)},
			{Workload: 70, StartTime: now.Add(-30 * time.Hour)},
		}

		Convey("Then the level follows the window average, not the last session", func() {
			rec := recovery.Compute(activities, now, recovery.DefaultConfig())
			So(rec.WorkloadLevel, ShouldEqual, recovery.LevelModerate)
			So(rec.Stats.AvgWorkload, ShouldEqual, "40.0")
			So(rec.Stats.ActivitiesCount, ShouldEqual, 2)
		})
	})
}

func TestCompute_RemainingHoursCeiling(t *testing.T) {
	Convey("Given a moderate workload 20.1 hours ago", t, func() {
		rec := recovery.Compute(single(45, 20.1), now, recovery.DefaultConfig())

		Convey("Then the remaining rest is rounded up", func() {
			So(rec.RecommendedRestHours, ShouldEqual, 24)
			So(rec.CanRide, ShouldBeFalse)
			So(rec.RemainingHours, ShouldEqual, 4)
			So(rec.Message, ShouldEqual, "Charge de travail modérée. Un jour de repos est recommandé. Il reste 4h de repos recommandé.")
			So(rec.Stats.HoursSinceLastActivity, ShouldEqual, "20.1")
		})
	})

	Convey("Given a moderate workload 23.99 hours ago", t, func() {
		rec := recovery.Compute(single(45, 23.99), now, recovery.DefaultConfig())

		Convey("Then one hour is still announced", func() {
			So(rec.CanRide, ShouldBeFalse)
			So(rec.RemainingHours, ShouldEqual, 1)
		})
	})
}

func TestCompute_RideEligibility(t *testing.T) {
	Convey("Given a moderate workload and a 24h rest requirement", t, func() {
		cfg := recovery.DefaultConfig()

		Convey("When elapsed time is below the requirement", func() {
			for _, h := range []float64{0, 1, 12.5, 23, 23.9999} {
				rec := recovery.Compute(single(45, h), now, cfg)
				So(rec.CanRide, ShouldBeFalse)
				So(rec.RemainingHours, ShouldBeGreaterThan, 0)
			}
		})

		Convey("When elapsed time equals the requirement exactly", func() {
			rec := recovery.Compute(single(45, 24), now, cfg)

			Convey("Then the horse can ride", func() {
				So(rec.CanRide, ShouldBeTrue)
				So(rec.RemainingHours, ShouldEqual, 0)
				So(rec.Message, ShouldEqual, "Charge de travail modérée. Un jour de repos est recommandé. Le cheval est suffisamment reposé.")
			})
		})

		Convey("When elapsed time exceeds the requirement", func() {
			for _, h := range []float64{24.0001, 30, 100} {
				rec := recovery.Compute(single(45, h), now, cfg)
				So(rec.CanRide, ShouldBeTrue)
			}
		})
	})
}

func TestCompute_MissingFields(t *testing.T) {
	Convey("Given records with absent numeric fields", t, func() {
		activities := []recovery.Activity{
			{StartTime: now.Add(-5 * time.Hour)},
			{Workload: 50, DurationSeconds: 600, DistanceMeters: 1500, StartTime: now.Add(-10 * time.Hour)},
			{Workload: math.NaN(), DistanceMeters: math.NaN(), StartTime: now.Add(-20 * time.Hour)},
		}

		rec := recovery.Compute(activities, now, recovery.DefaultConfig())

		Convey("Then they contribute zero to the aggregates", func() {
			So(rec.Stats.AvgWorkload, ShouldEqual, "16.7")
			So(rec.WorkloadLevel, ShouldEqual, recovery.LevelLight)
			So(rec.Stats.TotalDistanceKm, ShouldEqual, "1.50 km")
			So(rec.Stats.TotalDurationFormatted, ShouldEqual, "10min")
		})
	})
}

func TestCompute_Determinism(t *testing.T) {
	Convey("Given the same input twice", t, func() {
		activities := []recovery.Activity{
			{Workload: 62.5, DurationSeconds: 4000, DistanceMeters: 12345.6, StartTime: now.Add(-7 * time.Hour)},
			{Workload: 71, DurationSeconds: 2700, DistanceMeters: 8000, StartTime: now.Add(-50 * time.Hour)},
		}

		first, err := json.Marshal(recovery.Compute(activities, now, recovery.DefaultConfig()))
		So(err, ShouldBeNil)
		second, err := json.Marshal(recovery.Compute(activities, now, recovery.DefaultConfig()))
		So(err, ShouldBeNil)

		Convey("Then the serialized outputs are byte-identical", func() {
			So(string(first), ShouldEqual, string(second))
		})
	})
}

func TestCompute_EndToEndExample(t *testing.T) {
	Convey("Given one very intense ride ten hours ago", t, func() {
		activities := []recovery.Activity{{
			Workload:        85,
			DistanceMeters:  10000,
			DurationSeconds: 3600,
			StartTime:       now.Add(-10 * time.Hour),
		}}

		rec := recovery.Compute(activities, now, recovery.DefaultConfig())

		Convey("Then three days of rest are recommended", func() {
			So(rec.WorkloadLevel, ShouldEqual, recovery.LevelVeryIntense)
			So(rec.RecommendedRestHours, ShouldEqual, 72)
			So(rec.CanRide, ShouldBeFalse)
			So(rec.RemainingHours, ShouldEqual, 62)
			So(rec.Message, ShouldEqual, "Charge de travail très intense. Trois jours de repos minimum sont nécessaires. Il reste 62h de repos recommandé.")
		})

		Convey("And the stats are formatted for display", func() {
			So(rec.Stats, ShouldResemble, &recovery.Stats{
				ActivitiesCount:        1,
				AvgWorkload:            "85.0",
				TotalDistanceKm:        "10.00 km",
				TotalDurationFormatted: "1h 0min",
				HoursSinceLastActivity: "10.0",
			})
		})
	})
}

func TestCompute_MostRecentActivity(t *testing.T) {
	Convey("Given activities handed over out of order", t, func() {
		activities := []recovery.Activity{
			{Workload: 40, StartTime: now.Add(-30 * time.Hour)},
			{Workload: 40, StartTime: now.Add(-3 * time.Hour)},
		}
		before := append([]recovery.Activity(nil), activities...)

		rec := recovery.Compute(activities, now, recovery.DefaultConfig())

		Convey("Then elapsed time is measured from the latest start", func() {
			So(rec.Stats.HoursSinceLastActivity, ShouldEqual, "3.0")
			So(rec.RemainingHours, ShouldEqual, 21)
		})

		Convey("And the caller's slice is left untouched", func() {
			So(activities, ShouldResemble, before)
		})
	})
}

func TestCompute_CustomPolicy(t *testing.T) {
	Convey("Given a two-tier policy with English wording", t, func() {
		cfg := recovery.Config{
			LookbackDays: 3,
			Tiers: []recovery.Tier{
				{MaxAvgWorkload: 50, Level: recovery.LevelLight, RestHours: 6, Message: "Easy week."},
				{Level: recovery.LevelIntense, RestHours: 36, Message: "Hard week."},
			},
			Messages: recovery.Messages{
				Rested:     "Nothing logged.",
				Remaining:  "{hours}h to go.",
				Sufficient: "Ready.",
			},
		}
		So(cfg.Validate(), ShouldBeNil)

		Convey("Then the open-ended last tier catches high averages", func() {
			rec := recovery.Compute(single(90, 12), now, cfg)
			So(rec.WorkloadLevel, ShouldEqual, recovery.LevelIntense)
			So(rec.Message, ShouldEqual, "Hard week. 24h to go.")
		})

		Convey("And the first tier uses its own wording", func() {
			rec := recovery.Compute(single(10, 12), now, cfg)
			So(rec.Message, ShouldEqual, "Easy week. Ready.")
		})
	})
}

func formatFloat(v float64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
