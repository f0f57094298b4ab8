// Package outbound holds messages between the application's send call and
// their transmit slot: a bounded FIFO queue feeding the scheduler, and an
// access-order cache that keeps recently sent messages retryable after they
// leave the queue.
package outbound

import (
	"sync"

	"beaconmesh/internal/mesh"
)

const DefaultQueueCapacity = 50

// Queue is a bounded FIFO. New work is never rejected: when full, the
// oldest entry is sacrificed. Producers are application threads, the single
// consumer is the scheduler loop; the lock is held only for O(1) sections.
type Queue struct {
	mu       sync.Mutex
	capacity int
	items    []mesh.Message
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{capacity: capacity}
}

// Enqueue appends to the back, dropping the front entry first when the
// queue is at capacity. Returns true when an entry was evicted.
func (q *Queue) Enqueue(m mesh.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	evicted := false
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		evicted = true
	}
	q.items = append(q.items, m)
	return evicted
}

// Dequeue pops the front entry, or returns false when empty.
func (q *Queue) Dequeue() (mesh.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return mesh.Message{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
