// Package dedup suppresses repeated receipt of the same raw frame. The
// radio layer repeats every broadcast many times per second, so seeing one
// logical frame dozens of times is the common case, not an anomaly.
package dedup

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

const DefaultCapacity = 100

// Filter is a bounded recency set over frame fingerprints, insertion
// ordered: when full, the oldest entry is evicted. It is owned by the
// engine loop and needs no locking.
type Filter struct {
	capacity int
	seen     map[uint64]struct{}
	order    []uint64
}

func New(capacity int) *Filter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Filter{
		capacity: capacity,
		seen:     make(map[uint64]struct{}, capacity),
	}
}

// Fingerprint reduces raw frame bytes to the 64-bit key the filter stores.
func Fingerprint(raw []byte) uint64 {
	sum := blake3.Sum256(raw)
	return binary.BigEndian.Uint64(sum[:8])
}

// Seen reports whether the fingerprint is currently in the window.
func (f *Filter) Seen(fp uint64) bool {
	_, ok := f.seen[fp]
	return ok
}

// Insert records a fingerprint, evicting the oldest entry when the window
// is full. Inserting a fingerprint already present is a no-op.
func (f *Filter) Insert(fp uint64) {
	if _, ok := f.seen[fp]; ok {
		return
	}
	if len(f.order) >= f.capacity {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.seen, oldest)
	}
	f.seen[fp] = struct{}{}
	f.order = append(f.order, fp)
}

func (f *Filter) Len() int {
	return len(f.order)
}
