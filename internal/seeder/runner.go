package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/paddock/internal/domain/types"
	"github.com/okian/paddock/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete seeding run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("seeder")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting paddock seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("horses", cfg.Horses),
		logger.Int("activitiesPerHorse", cfg.ActivitiesPerHorse),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", int64(cfg.Seed)), //nolint:gosec // display only
	)

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return stats, err
	}
	baseline, err := processedActivities(ctx, client, cfg.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("read baseline stats: %w", err)
	}

	now := time.Now()
	horses := Generate(ctx, cfg, now)
	stats.HorsesGenerated = len(horses)
	stats.ActivitiesGenerated = countActivities(horses)

	incomplete := submitActivities(ctx, cfg, horses, stats)

	if err := waitForDrain(ctx, client, cfg, baseline+int64(stats.ActivitiesAccepted)); err != nil {
		return stats, err
	}

	if err := verifyRecommendations(ctx, client, cfg, horses, incomplete, stats); err != nil {
		return stats, err
	}

	if cfg.OutputFile != "" {
		if err := saveActivitiesToFile(ctx, cfg.OutputFile, horses); err != nil {
			log.Warn(ctx, "failed to save activities to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Mismatches > 0 {
		return stats, fmt.Errorf("%w: %d of %d horses", ErrVerification, stats.Mismatches, stats.HorsesVerified)
	}
	log.Info(ctx, "seeding run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	var health struct {
		Status string `json:"status"`
	}
	if err := client.getJSON(ctx, baseURL+"/healthz", &health); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, health.Status)
	}
	logger.Get().Named("seeder").Info(ctx, "service is healthy")
	return nil
}

type serviceStats struct {
	ProcessedActivities int64 `json:"processedActivities"`
	QueueLength         int   `json:"queueLength"`
}

func readStats(ctx context.Context, client *HTTPClient, baseURL string) (serviceStats, error) {
	var s serviceStats
	err := client.getJSON(ctx, baseURL+"/stats", &s)
	return s, err
}

func processedActivities(ctx context.Context, client *HTTPClient, baseURL string) (int64, error) {
	s, err := readStats(ctx, client, baseURL)
	return s.ProcessedActivities, err
}

// waitForDrain polls /stats until the workers have stored target activities
// in total and the queue is empty.
func waitForDrain(ctx context.Context, client *HTTPClient, cfg *Config, target int64) error {
	log := logger.Get().Named("seeder")
	log.Info(ctx, "waiting for activities to be stored", logger.Int64("target", target))

	ctx, cancel := context.WithTimeout(ctx, cfg.DrainTimeout)
	defer cancel()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	var last serviceStats
	for {
		s, err := readStats(ctx, client, cfg.BaseURL)
		if err == nil {
			last = s
			if s.ProcessedActivities >= target && s.QueueLength == 0 {
				log.Info(ctx, "ingest queue drained", logger.Int64("processed", s.ProcessedActivities))
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: processed %d of %d, queue length %d",
				ErrDrainTimeout, last.ProcessedActivities, target, last.QueueLength)
		case <-ticker.C:
		}
	}
}

// saveActivitiesToFile writes the generated activities as a JSON array.
func saveActivitiesToFile(ctx context.Context, filename string, horses []Horse) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	all := make([]types.ActivityPayload, 0, countActivities(horses))
	for i := range horses {
		all = append(all, horses[i].Activities...)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activities: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Named("seeder").Info(ctx, "activities saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var activitiesPerSecond float64
	if stats.Duration > 0 {
		activitiesPerSecond = float64(stats.ActivitiesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Named("seeder").Info(ctx, "final statistics",
		logger.Int("horsesGenerated", stats.HorsesGenerated),
		logger.Int("activitiesGenerated", stats.ActivitiesGenerated),
		logger.Int("activitiesSubmitted", stats.ActivitiesSubmitted),
		logger.Int("activitiesAccepted", stats.ActivitiesAccepted),
		logger.Int("activitiesDuplicate", stats.ActivitiesDuplicate),
		logger.Int("activitiesFailed", stats.ActivitiesFailed),
		logger.Int("horsesVerified", stats.HorsesVerified),
		logger.Int("horsesSkipped", stats.HorsesSkipped),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("activitiesPerSecond", activitiesPerSecond),
	)
}
