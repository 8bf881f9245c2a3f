package seeder

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/paddock/internal/domain/types"
	"github.com/okian/paddock/pkg/logger"
)

// profile bounds the per-activity workload of a horse so that the horse's
// average lands inside one workload tier.
type profile struct {
	name        string
	minWorkload float64
	maxWorkload float64
	idle        bool
}

//nolint:gochecknoglobals // fixed generation table
var profiles = []profile{
	{name: "idle", idle: true},
	{name: "light", minWorkload: 5, maxWorkload: 30},
	{name: "moderate", minWorkload: 30, maxWorkload: 60},
	{name: "intense", minWorkload: 60, maxWorkload: 80},
	{name: "very_intense", minWorkload: 80, maxWorkload: 100},
}

// Horse is a generated horse with its activities.
type Horse struct {
	ID         string
	Profile    string
	Activities []types.ActivityPayload
}

// Generate creates cfg.Horses horses cycling through the workload profiles.
// Start times fall strictly inside the lookback window ending at now.
func Generate(ctx context.Context, cfg *Config, now time.Time) []Horse {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1|1)) //nolint:gosec // synthetic data

	horses := make([]Horse, cfg.Horses)
	total := 0
	for i := range horses {
		p := profiles[i%len(profiles)]
		h := Horse{ID: "horse-" + uuid.NewString(), Profile: p.name}
		if !p.idle {
			h.Activities = make([]types.ActivityPayload, cfg.ActivitiesPerHorse)
			for j := range h.Activities {
				h.Activities[j] = generateActivity(rng, h.ID, p, now, cfg.Days)
			}
		}
		total += len(h.Activities)
		horses[i] = h
	}

	logger.Get().Info(ctx, "generated horses",
		logger.Int("horses", len(horses)),
		logger.Int("activities", total),
		logger.Int("days", cfg.Days),
	)
	return horses
}

func generateActivity(rng *rand.Rand, horseID string, p profile, now time.Time, days int) types.ActivityPayload {
	workload := p.minWorkload + rng.Float64()*(p.maxWorkload-p.minWorkload)
	duration := int64(20*60 + rng.IntN(100*60))
	distance := 2000 + rng.Float64()*18000

	// Keep an hour clear of both window edges.
	spanHours := days*24 - 2
	start := now.Add(-time.Duration(1+rng.IntN(spanHours)) * time.Hour).
		Add(-time.Duration(rng.IntN(3600)) * time.Second).
		UTC().Truncate(time.Second)

	return types.ActivityPayload{
		ActivityID:      uuid.NewString(),
		HorseID:         horseID,
		Workload:        &workload,
		DurationSeconds: &duration,
		Distance:        &distance,
		StartTime:       start.Format(time.RFC3339),
	}
}

func countActivities(horses []Horse) int {
	n := 0
	for i := range horses {
		n += len(horses[i].Activities)
	}
	return n
}
