// Package service wires the ingest pipeline, the activity store and the
// recovery calculator behind the operations the API exposes.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/paddock/internal/adapters/mq/queue"
	"github.com/okian/paddock/internal/adapters/mq/worker"
	"github.com/okian/paddock/internal/adapters/repository"
	"github.com/okian/paddock/internal/domain/dedupe"
	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/internal/domain/recovery"
	"github.com/okian/paddock/pkg/logger"
	"github.com/okian/paddock/pkg/metrics"
)

const (
	defaultMaxLookbackDays = 90
	stopTimeout            = 10 * time.Second
)

// Receipt describes the outcome of an accepted submission.
type Receipt struct {
	ActivityID string
	Duplicate  bool
}

// Service implements the API dependencies for the recovery system.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	ownsStore  bool
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	workerPool *worker.Pool

	policy        atomic.Pointer[recovery.Config]
	initialPolicy *recovery.Config

	workerCount     int
	queueSize       int
	dedupeSize      int
	shardCount      int
	maxLookbackDays int
	now             func() time.Time

	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		dedupeSize:      50_000,
		shardCount:      64,
		maxLookbackDays: defaultMaxLookbackDays,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the store, the queue and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	policy := recovery.DefaultConfig()
	if s.initialPolicy != nil {
		policy = *s.initialPolicy
	}
	if err := s.checkPolicy(policy); err != nil {
		return err
	}
	s.policy.Store(&policy)

	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithShardCount(s.shardCount))
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory activity store", logger.Int("shards", s.shardCount))
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.queue, s.store,
		worker.WithFailureHandler(s.onStoreFailure),
	)
	// Workers must outlive the start context; Stop drains them.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "recovery service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("lookbackDays", policy.LookbackDays),
	)
	return nil
}

// Stop drains the ingest queue and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping recovery service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "recovery service stopped")
}

// onStoreFailure forgets the activity id so that a retried submission is accepted.
func (s *Service) onStoreFailure(ctx context.Context, a model.Activity, err error) { //nolint:gocritic // hugeParam: worker callback
	s.deduper.Unrecord(ctx, a.ActivityID)
	s.logger.Warn(ctx, "activity not stored, id released for retry",
		logger.String("activity_id", a.ActivityID),
		logger.Error(err),
	)
}

// Submit validates an activity and queues it for storage. Activities
// without an id get a random one.
func (s *Service) Submit(ctx context.Context, a model.Activity) (Receipt, error) { //nolint:gocritic // hugeParam: value semantics
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return Receipt{}, ErrNotStarted
	}
	if err := a.Validate(); err != nil {
		metrics.RecordActivityRejected("invalid")
		return Receipt{}, err
	}
	a.HorseID = strings.TrimSpace(a.HorseID)
	if a.ActivityID == "" {
		a.ActivityID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, a.ActivityID) {
		metrics.RecordActivityDuplicate()
		s.logger.Debug(ctx, "duplicate activity", logger.String("activity_id", a.ActivityID))
		return Receipt{ActivityID: a.ActivityID, Duplicate: true}, nil
	}

	if !s.queue.Enqueue(ctx, a) {
		s.deduper.Unrecord(ctx, a.ActivityID)
		metrics.RecordActivityRejected("backpressure")
		if err := ctx.Err(); err != nil {
			return Receipt{}, err
		}
		return Receipt{}, fmt.Errorf("%w: capacity %d", ErrBackpressure, s.queue.Capacity())
	}

	metrics.RecordActivityIngested()
	return Receipt{ActivityID: a.ActivityID}, nil
}

// Ingest is Submit reporting only whether the activity was a duplicate.
func (s *Service) Ingest(ctx context.Context, a model.Activity) (bool, error) { //nolint:gocritic // hugeParam: value semantics
	r, err := s.Submit(ctx, a)
	return r.Duplicate, err
}

// LookbackDays returns the window used when a caller does not choose one.
func (s *Service) LookbackDays() int {
	if p := s.policy.Load(); p != nil {
		return p.LookbackDays
	}
	return recovery.DefaultLookbackDays
}

// Recommend computes the recovery recommendation for horseID over the last
// days calendar days.
func (s *Service) Recommend(ctx context.Context, horseID string, days int) (recovery.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendationLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	horseID = strings.TrimSpace(horseID)
	if horseID == "" {
		return recovery.Recommendation{}, ErrMissingHorseID
	}
	if days <= 0 || days > s.maxLookbackDays {
		return recovery.Recommendation{}, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidWindow, s.maxLookbackDays)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return recovery.Recommendation{}, ErrNotStarted
	}

	now := s.now()
	activities, err := s.store.Recent(ctx, horseID, now.AddDate(0, 0, -days))
	if err != nil {
		return recovery.Recommendation{}, fmt.Errorf("load activities for %s: %w", horseID, err)
	}

	rec := recovery.Compute(model.Records(activities), now, *s.policy.Load())

	metrics.RecordWindowActivities(len(activities))
	metrics.RecordRecommendation(string(rec.WorkloadLevel), rec.CanRide)
	s.logger.Debug(ctx, "recommendation computed",
		logger.String("horse_id", horseID),
		logger.Int("days", days),
		logger.Int("activities", len(activities)),
		logger.String("level", string(rec.WorkloadLevel)),
		logger.Bool("can_ride", rec.CanRide),
	)
	return rec, nil
}

// UpdateRecoveryPolicy validates cfg and makes it the active policy.
// Recommendations in flight finish with the policy they started with.
func (s *Service) UpdateRecoveryPolicy(cfg recovery.Config) error {
	if err := s.checkPolicy(cfg); err != nil {
		metrics.RecordConfigReload("rejected")
		return err
	}
	s.policy.Store(&cfg)
	metrics.RecordConfigReload("applied")
	return nil
}

func (s *Service) checkPolicy(cfg recovery.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.LookbackDays > s.maxLookbackDays {
		return fmt.Errorf("%w: lookback of %d days exceeds the %d day maximum",
			recovery.ErrInvalidConfig, cfg.LookbackDays, s.maxLookbackDays)
	}
	return nil
}

// RecoveryPolicy returns a copy of the active policy.
func (s *Service) RecoveryPolicy() recovery.Config {
	p := s.policy.Load()
	if p == nil {
		return recovery.DefaultConfig()
	}
	out := *p
	out.Tiers = append([]recovery.Tier(nil), p.Tiers...)
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueCapacity":   s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"maxLookbackDays": s.maxLookbackDays,
		"lookbackDays":    s.LookbackDays(),
	}
	if !s.started {
		return stats
	}

	stats["workerCount"] = s.workerPool.Size()
	stats["queueLength"] = s.queue.Len(ctx)
	stats["processedActivities"] = s.workerPool.Processed()
	stats["dedupeEntries"] = s.deduper.Size()
	if n, err := s.store.Count(ctx); err == nil {
		stats["storedActivities"] = n
	} else {
		s.logger.Warn(ctx, "counting stored activities", logger.Error(err))
	}
	return stats
}
