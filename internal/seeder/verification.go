package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/internal/domain/recovery"
	"github.com/okian/paddock/internal/domain/types"
	"github.com/okian/paddock/pkg/logger"
)

// Expected computes the recommendation the service should return for h
// under the default recovery policy.
func Expected(h *Horse, now time.Time) (recovery.Recommendation, error) {
	activities := make([]model.Activity, 0, len(h.Activities))
	for _, p := range h.Activities {
		a, err := p.ToModel()
		if err != nil {
			return recovery.Recommendation{}, err
		}
		activities = append(activities, a)
	}
	sort.Slice(activities, func(i, j int) bool {
		return activities[i].StartTime.After(activities[j].StartTime)
	})
	return recovery.Compute(model.Records(activities), now, recovery.DefaultConfig()), nil
}

// mismatch describes why a served recommendation differs from the expected one.
func mismatch(got, want *recovery.Recommendation) string {
	switch {
	case got.WorkloadLevel != want.WorkloadLevel:
		return fmt.Sprintf("level %s, want %s", got.WorkloadLevel, want.WorkloadLevel)
	case got.RecommendedRestHours != want.RecommendedRestHours:
		return fmt.Sprintf("rest hours %d, want %d", got.RecommendedRestHours, want.RecommendedRestHours)
	case activityCount(got) != activityCount(want):
		return fmt.Sprintf("activities %d, want %d", activityCount(got), activityCount(want))
	}
	return ""
}

func activityCount(r *recovery.Recommendation) int {
	if r.Stats == nil {
		return 0
	}
	return r.Stats.ActivitiesCount
}

// verifyRecommendations fetches /recovery for every completely submitted
// horse and compares it with the locally computed recommendation.
func verifyRecommendations(ctx context.Context, client *HTTPClient, cfg *Config, horses []Horse, incomplete map[string]bool, stats *Stats) error {
	log := logger.Get().Named("seeder")
	log.Info(ctx, "verifying recommendations", logger.Int("horses", len(horses)))

	url := cfg.BaseURL + "/recovery"
	indices := make(chan int, cfg.Workers*workerChannelMultiplier)

	var (
		mu       sync.Mutex
		verified int
		failures int
		firstErr error
		wg       sync.WaitGroup
	)

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				h := &horses[i]
				diff, err := verifyHorse(ctx, client, url, cfg.Days, h)

				mu.Lock()
				switch {
				case err != nil:
					if firstErr == nil {
						firstErr = err
					}
				case diff != "":
					failures++
					log.Warn(ctx, "recommendation mismatch",
						logger.String("horse_id", h.ID),
						logger.String("profile", h.Profile),
						logger.String("diff", diff),
					)
				default:
					verified++
					if cfg.Verbose {
						log.Info(ctx, "recommendation verified",
							logger.String("horse_id", h.ID),
							logger.String("profile", h.Profile),
						)
					}
				}
				mu.Unlock()
			}
		}()
	}

	skipped := 0
	for i := range horses {
		if incomplete[horses[i].ID] {
			skipped++
			continue
		}
		indices <- i
	}
	close(indices)
	wg.Wait()

	stats.HorsesVerified = verified + failures
	stats.HorsesSkipped = skipped
	stats.Mismatches = failures

	if firstErr != nil {
		return fmt.Errorf("fetch recommendation: %w", firstErr)
	}
	log.Info(ctx, "verification completed",
		logger.Int("verified", verified),
		logger.Int("mismatches", failures),
		logger.Int("skipped", skipped),
	)
	return nil
}

func verifyHorse(ctx context.Context, client *HTTPClient, url string, days int, h *Horse) (string, error) {
	resp, err := client.Post(ctx, url, types.RecoveryRequest{HorseID: h.ID, Days: &days})
	if err != nil {
		return "", err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("horse %s: status %d: %s", h.ID, resp.StatusCode, body)
	}

	var out types.RecoveryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("horse %s: %w", h.ID, err)
	}
	if !out.Success || out.Data == nil {
		return "", fmt.Errorf("horse %s: unsuccessful response: %s", h.ID, out.Error)
	}

	want, err := Expected(h, time.Now())
	if err != nil {
		return "", err
	}
	return mismatch(out.Data, &want), nil
}
