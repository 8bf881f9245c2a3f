package seeder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/paddock/internal/adapters/http/api"
	service "github.com/okian/paddock/internal/app"
	"github.com/okian/paddock/internal/domain/recovery"
	"github.com/okian/paddock/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeding config", t, func() {
		now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
		cfg := &Config{Horses: 10, ActivitiesPerHorse: 4, Days: 3, Seed: 7}

		horses := Generate(context.Background(), cfg, now)

		Convey("Then every profile is used and idle horses have no activities", func() {
			So(horses, ShouldHaveLength, 10)
			So(countActivities(horses), ShouldEqual, 8*4)
			for i, h := range horses {
				So(h.Profile, ShouldEqual, profiles[i%len(profiles)].name)
				if h.Profile == "idle" {
					So(h.Activities, ShouldBeEmpty)
				}
			}
		})

		Convey("Then start times stay inside the window", func() {
			windowStart := now.AddDate(0, 0, -cfg.Days)
			for _, h := range horses {
				for _, p := range h.Activities {
					a, err := p.ToModel()
					So(err, ShouldBeNil)
					So(a.HorseID, ShouldEqual, h.ID)
					So(a.StartTime.After(windowStart), ShouldBeTrue)
					So(a.StartTime.Before(now), ShouldBeTrue)
				}
			}
		})

		Convey("Then each profile lands in its workload tier", func() {
			want := map[string]recovery.Level{
				"idle":         recovery.LevelNone,
				"light":        recovery.LevelLight,
				"moderate":     recovery.LevelModerate,
				"intense":      recovery.LevelIntense,
				"very_intense": recovery.LevelVeryIntense,
			}
			for i := range horses {
				rec, err := Expected(&horses[i], now)
				So(err, ShouldBeNil)
				So(rec.WorkloadLevel, ShouldEqual, want[horses[i].Profile])
			}
		})

		Convey("Then the same seed generates the same workloads", func() {
			again := Generate(context.Background(), cfg, now)
			So(*again[1].Activities[0].Workload, ShouldEqual, *horses[1].Activities[0].Workload)
			So(again[1].Activities[0].StartTime, ShouldEqual, horses[1].Activities[0].StartTime)
		})
	})
}

func TestMismatch(t *testing.T) {
	Convey("Given two recommendations", t, func() {
		want := recovery.Recommendation{WorkloadLevel: recovery.LevelLight, RecommendedRestHours: 12, Stats: &recovery.Stats{ActivitiesCount: 2}}

		Convey("Then equal fields report no difference", func() {
			got := want
			So(mismatch(&got, &want), ShouldBeEmpty)
		})

		Convey("Then differing fields are described", func() {
			got := want
			got.WorkloadLevel = recovery.LevelModerate
			So(mismatch(&got, &want), ShouldContainSubstring, "level moderate")

			got = want
			got.Stats = nil
			So(mismatch(&got, &want), ShouldContainSubstring, "activities 0, want 2")
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running paddock service", t, func() {
		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(256))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a seeding run completes", func() {
			out := filepath.Join(t.TempDir(), "activities.json")
			stats, err := Run(context.Background(), &Config{
				BaseURL:            srv.URL,
				Horses:             10,
				ActivitiesPerHorse: 3,
				Days:               7,
				Workers:            4,
				DrainTimeout:       10 * time.Second,
				Seed:               42,
				OutputFile:         out,
			})

			Convey("Then every horse is verified without mismatches", func() {
				So(err, ShouldBeNil)
				So(stats.ActivitiesGenerated, ShouldEqual, 24)
				So(stats.ActivitiesAccepted, ShouldEqual, 24)
				So(stats.ActivitiesFailed, ShouldEqual, 0)
				So(stats.HorsesVerified, ShouldEqual, 10)
				So(stats.Mismatches, ShouldEqual, 0)

				data, readErr := os.ReadFile(out)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, `"horse_id"`)
			})
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Horses: 1})

		So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
	})
}
