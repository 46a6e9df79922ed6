// Package queue implements a bounded, blocking, generic FIFO queue used to
// hand connections from a single acceptor to a fixed pool of workers.
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Queue is a fixed-capacity circular buffer safe for concurrent use by
// multiple producers and multiple consumers. A push blocks while the queue
// is full; a pop blocks while the queue is empty.
//
// Producer and consumer sides are guarded by independent mutexes so that a
// blocked producer never holds up a consumer and vice versa; the "bounded"
// conditions themselves are enforced by a pair of counting semaphores rather
// than condition-variable wait loops.
type Queue[T any] struct {
	buf  []T
	cap  int64
	head int
	tail int

	empty *semaphore.Weighted // counts free slots
	full  *semaphore.Weighted // counts filled slots

	producerMu sync.Mutex
	consumerMu sync.Mutex

	// size is an approximate occupancy counter for metrics only; it never
	// gates push/pop, which rely solely on the semaphores above.
	size atomic.Int64
}

// New constructs a Queue with the given capacity. Capacity must be positive.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: capacity must be > 0, got %d", capacity)
	}

	// The filled-slot semaphore starts with no permits available: drain the
	// permits NewWeighted hands out so that Pop blocks until a Push.
	full := semaphore.NewWeighted(int64(capacity))
	full.TryAcquire(int64(capacity))

	return &Queue[T]{
		buf:   make([]T, capacity),
		cap:   int64(capacity),
		empty: semaphore.NewWeighted(int64(capacity)),
		full:  full,
	}, nil
}

// Push appends item to the tail, blocking while the queue is full.
func (q *Queue[T]) Push(item T) {
	// Background context: semaphore.Acquire never fails without cancellation.
	_ = q.empty.Acquire(context.Background(), 1)

	q.producerMu.Lock()
	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % int(q.cap)
	q.producerMu.Unlock()

	q.size.Add(1)
	q.full.Release(1)
}

// Pop removes and returns the item at the head, blocking while the queue is empty.
func (q *Queue[T]) Pop() T {
	_ = q.full.Acquire(context.Background(), 1)

	q.consumerMu.Lock()
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % int(q.cap)
	q.consumerMu.Unlock()

	q.size.Add(-1)
	q.empty.Release(1)
	return item
}

// PushContext is Push, abandoned if ctx is cancelled before a slot frees up.
func (q *Queue[T]) PushContext(ctx context.Context, item T) error {
	if err := q.empty.Acquire(ctx, 1); err != nil {
		return err
	}

	q.producerMu.Lock()
	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % int(q.cap)
	q.producerMu.Unlock()

	q.size.Add(1)
	q.full.Release(1)
	return nil
}

// PopContext is Pop, abandoned if ctx is cancelled before an item arrives.
func (q *Queue[T]) PopContext(ctx context.Context) (T, error) {
	var zero T
	if err := q.full.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	q.consumerMu.Lock()
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % int(q.cap)
	q.consumerMu.Unlock()

	q.size.Add(-1)
	q.empty.Release(1)
	return item, nil
}

// Cap returns the queue's fixed capacity.
func (q *Queue[T]) Cap() int {
	return int(q.cap)
}

// Len returns an approximate current occupancy, for metrics gauges only.
func (q *Queue[T]) Len() int {
	return int(q.size.Load())
}
