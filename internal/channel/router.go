// Package channel maps channel identifiers into the 15-bit hash space used
// on the wire and tracks which channels this device has joined. Traffic for
// a channel that was never joined is invisible: Resolve is the
// deny-by-default membership filter applied during decode.
package channel

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/sha3"

	"beaconmesh/internal/wire"
)

// Hash maps a channel id into [0x0001, SentinelInvite). It is deterministic
// and avoids the reserved sentinel values by construction. It is not
// collision-free across distinct channels; two joined channels that collide
// cross-deliver, a known limitation of the address space.
func Hash(channelID string) uint16 {
	buf := make([]byte, 0, len(channelID)+1)
	buf = append(buf, channelID...)
	for attempt := byte(0); ; attempt++ {
		sum := sha3.Sum256(append(buf, attempt))
		h := binary.BigEndian.Uint16(sum[:2]) & wire.HashMask
		if h != 0 && h < wire.SentinelInvite {
			return h
		}
	}
}

// Router is the joined-channel registry. All lookups are O(1); mutation is
// rare (join/leave) and reads happen on every received frame.
type Router struct {
	mu     sync.RWMutex
	byID   map[string]uint16
	byHash map[uint16]string
}

func NewRouter() *Router {
	return &Router{
		byID:   make(map[string]uint16),
		byHash: make(map[uint16]string),
	}
}

// Register joins a channel and returns its hash. Re-registering is a no-op.
// If the hash collides with an already joined channel the newer registration
// wins the reverse mapping; the collision is not guarded against.
func (r *Router) Register(channelID string) uint16 {
	h := Hash(channelID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[channelID] = h
	r.byHash[h] = channelID
	return h
}

// Unregister leaves a channel. Traffic for its hash becomes invisible again.
func (r *Router) Unregister(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[channelID]
	if !ok {
		return
	}
	delete(r.byID, channelID)
	if r.byHash[h] == channelID {
		delete(r.byHash, h)
	}
}

// Resolve returns the joined channel for a hash, or false when the hash
// belongs to no joined channel.
func (r *Router) Resolve(hash uint16) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHash[hash]
	return id, ok
}

// Joined reports membership for a channel id.
func (r *Router) Joined(channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[channelID]
	return ok
}

// List returns the joined channel ids in no particular order.
func (r *Router) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	return out
}
