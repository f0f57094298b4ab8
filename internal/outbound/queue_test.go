package outbound

import (
	"fmt"
	"sync"
	"testing"

	"beaconmesh/internal/mesh"
)

func TestFIFO(t *testing.T) {
	q := NewQueue(10)
	for i := 0; i < 3; i++ {
		q.Enqueue(mesh.Message{Content: fmt.Sprintf("m%d", i)})
	}
	for i := 0; i < 3; i++ {
		m, ok := q.Dequeue()
		if !ok || m.Content != fmt.Sprintf("m%d", i) {
			t.Fatalf("dequeue %d = %q, %v", i, m.Content, ok)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("empty queue yielded a message")
	}
}

func TestOverflowSacrificesOldest(t *testing.T) {
	q := NewQueue(50)
	for i := 0; i < 51; i++ {
		evicted := q.Enqueue(mesh.Message{Content: fmt.Sprintf("m%d", i)})
		if evicted != (i == 50) {
			t.Fatalf("enqueue %d: evicted = %v", i, evicted)
		}
	}
	if q.Len() != 50 {
		t.Fatalf("queue length = %d, want 50", q.Len())
	}
	// m0 is gone; m1..m50 remain in original relative order.
	for i := 1; i <= 50; i++ {
		m, ok := q.Dequeue()
		if !ok || m.Content != fmt.Sprintf("m%d", i) {
			t.Fatalf("after overflow, dequeue = %q, want m%d", m.Content, i)
		}
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := NewQueue(50)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Enqueue(mesh.Message{Content: "x"})
			}
		}()
	}
	wg.Wait()
	if q.Len() != 50 {
		t.Fatalf("queue length = %d after concurrent enqueues, want 50", q.Len())
	}
}
