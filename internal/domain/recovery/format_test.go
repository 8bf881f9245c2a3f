package recovery_test

import (
	"testing"
	"time"

	"github.com/okian/paddock/internal/domain/recovery"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormatDuration(t *testing.T) {
	Convey("Given durations in seconds", t, func() {
		So(recovery.FormatDuration(0), ShouldEqual, "0min")
		So(recovery.FormatDuration(59), ShouldEqual, "0min")
		So(recovery.FormatDuration(60), ShouldEqual, "1min")
		So(recovery.FormatDuration(3599), ShouldEqual, "59min")
		So(recovery.FormatDuration(3600), ShouldEqual, "1h 0min")
		So(recovery.FormatDuration(5430), ShouldEqual, "1h 30min")
		So(recovery.FormatDuration(26*3600+5*60), ShouldEqual, "26h 5min")
	})
}

func TestStatsFormatting(t *testing.T) {
	Convey("Given a window with several sessions", t, func() {
		activities := []recovery.Activity{
			{Workload: 20, DurationSeconds: 1500, DistanceMeters: 4321, StartTime: now.Add(-90 * time.Minute)},
			{Workload: 25, DurationSeconds: 2400, DistanceMeters: 6789, StartTime: now.Add(-26 * time.Hour)},
		}

		stats := recovery.Compute(activities, now, recovery.DefaultConfig()).Stats

		Convey("Then distance is in kilometers with two decimals", func() {
			So(stats.TotalDistanceKm, ShouldEqual, "11.11 km")
		})

		Convey("And duration is summed and split into hours and minutes", func() {
			So(stats.TotalDurationFormatted, ShouldEqual, "1h 5min")
		})

		Convey("And workload and elapsed hours use one decimal", func() {
			So(stats.AvgWorkload, ShouldEqual, "22.5")
			So(stats.HoursSinceLastActivity, ShouldEqual, "1.5")
		})
	})
}

func TestStatsHalfwayRounding(t *testing.T) {
	Convey("Given a session whose stats land exactly on a rounding tie", t, func() {
		activities := []recovery.Activity{
			{Workload: 12.25, DurationSeconds: 600, DistanceMeters: 1125, StartTime: now.Add(-15 * time.Minute)},
		}

		stats := recovery.Compute(activities, now, recovery.DefaultConfig()).Stats

		Convey("Then halves round up", func() {
			So(stats.AvgWorkload, ShouldEqual, "12.3")
			So(stats.TotalDistanceKm, ShouldEqual, "1.13 km")
			So(stats.HoursSinceLastActivity, ShouldEqual, "0.3")
		})
	})

	Convey("Given values just below a tie", t, func() {
		activities := []recovery.Activity{
			{Workload: 12.24, DistanceMeters: 1124, StartTime: now.Add(-14 * time.Minute)},
		}

		stats := recovery.Compute(activities, now, recovery.DefaultConfig()).Stats

		Convey("Then they round down", func() {
			So(stats.AvgWorkload, ShouldEqual, "12.2")
			So(stats.TotalDistanceKm, ShouldEqual, "1.12 km")
			So(stats.HoursSinceLastActivity, ShouldEqual, "0.2")
		})
	})
}
