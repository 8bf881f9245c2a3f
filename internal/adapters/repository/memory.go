package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/pkg/metrics"
)

// MemoryStore keeps activities in memory, sharded by horse id.
//
// Each horse's activities are kept sorted by StartTime DESC (ties by
// ActivityID ASC) so window reads are a prefix copy.
type MemoryStore struct {
	shards []*shard

	// owner maps ActivityID to HorseID so an upsert can move an activity
	// between horses. Writers hold idxMu for the whole Add.
	idxMu sync.Mutex
	owner map[string]string

	closed sync.Once
	done   chan struct{}
}

type shard struct {
	mu     sync.RWMutex
	horses map[string][]model.Activity
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := newSettings(opts)
	m := &MemoryStore{
		shards: make([]*shard, s.shardCount),
		owner:  make(map[string]string),
		done:   make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &shard{horses: make(map[string][]model.Activity)}
	}
	return m
}

func (m *MemoryStore) shardFor(horseID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(horseID))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

func (m *MemoryStore) isClosed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Add inserts or replaces an activity.
func (m *MemoryStore) Add(ctx context.Context, a model.Activity) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if m.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.idxMu.Lock()
	defer m.idxMu.Unlock()

	if prev, ok := m.owner[a.ActivityID]; ok {
		m.shardFor(prev).remove(prev, a.ActivityID)
	}
	m.owner[a.ActivityID] = a.HorseID
	m.shardFor(a.HorseID).insert(a)
	return nil
}

func (s *shard) remove(horseID, activityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.horses[horseID]
	for i := range list {
		if list[i].ActivityID == activityID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.horses, horseID)
		return
	}
	s.horses[horseID] = list
}

func (s *shard) insert(a model.Activity) { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.horses[a.HorseID]
	i := sort.Search(len(list), func(i int) bool {
		return before(a, list[i])
	})
	list = append(list, model.Activity{})
	copy(list[i+1:], list[i:])
	list[i] = a
	s.horses[a.HorseID] = list
}

// before reports whether a sorts ahead of b: newer first, then id ascending.
func before(a, b model.Activity) bool { //nolint:gocritic // hugeParam: comparator
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.After(b.StartTime)
	}
	return a.ActivityID < b.ActivityID
}

// Recent returns a copy of the horse's activities that started at or after since.
func (m *MemoryStore) Recent(ctx context.Context, horseID string, since time.Time) ([]model.Activity, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if m.isClosed() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := m.shardFor(horseID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.horses[horseID]
	n := sort.Search(len(list), func(i int) bool {
		return list[i].StartTime.Before(since)
	})
	out := make([]model.Activity, n)
	copy(out, list[:n])
	return out, nil
}

// Count returns the number of stored activities.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	if m.isClosed() {
		return 0, ErrClosed
	}
	m.idxMu.Lock()
	defer m.idxMu.Unlock()
	return len(m.owner), nil
}

// Close marks the store closed. Further calls return ErrClosed.
func (m *MemoryStore) Close() error {
	m.closed.Do(func() { close(m.done) })
	return nil
}
