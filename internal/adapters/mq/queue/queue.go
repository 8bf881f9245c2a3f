// Package queue buffers accepted activities between ingestion and the store
// writers. The in-memory implementation is a bounded channel.
package queue

import (
	"context"
	"sync"

	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Activity is the payload flowing through the queue.
type Activity = model.Activity

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an activity. It returns false when the queue is full,
	// closed or ctx is done; the activity is not enqueued in that case.
	Enqueue(ctx context.Context, a Activity) bool

	// Dequeue returns a channel that receives activities as they become
	// available. The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Activity

	// Len returns the current number of queued activities.
	Len(ctx context.Context) int

	// Close stops accepting activities. Already queued ones are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	activities chan Activity
	capacity   int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.activities = make(chan Activity, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Enqueue adds an activity to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, a Activity) bool { //nolint:gocritic // hugeParam: channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return false
	}

	select {
	case q.activities <- a:
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return true
	default:
		metrics.RecordQueueEnqueueError("full")
		return false
	}
}

// Dequeue returns a channel that receives activities as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Activity {
	out := make(chan Activity)
	go func() {
		defer close(out)
		for a := range q.activities {
			select {
			case out <- a:
				metrics.RecordQueueDequeue()
				q.updateGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued activities.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.updateGauges()
}

func (q *InMemoryQueue) updateGauges() int {
	size := len(q.activities)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.activities)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
