package channel

import (
	"fmt"
	"testing"

	"beaconmesh/internal/wire"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash("general")
	b := Hash("general")
	if a != b {
		t.Fatalf("two hashes of the same channel differ: %04x vs %04x", a, b)
	}
}

func TestHashAvoidsSentinelsAndZero(t *testing.T) {
	for i := 0; i < 5000; i++ {
		id := fmt.Sprintf("channel-%d", i)
		h := Hash(id)
		if h == 0 {
			t.Fatalf("channel %q hashed to zero", id)
		}
		if h >= wire.SentinelInvite {
			t.Fatalf("channel %q hashed into sentinel space: %04x", id, h)
		}
		if h&^wire.HashMask != 0 {
			t.Fatalf("channel %q escaped the 15-bit space: %04x", id, h)
		}
	}
}

func TestRegisterResolve(t *testing.T) {
	r := NewRouter()
	h := r.Register("general")
	if h != Hash("general") {
		t.Fatalf("register returned %04x, want %04x", h, Hash("general"))
	}
	id, ok := r.Resolve(h)
	if !ok || id != "general" {
		t.Fatalf("resolve(%04x) = %q, %v", h, id, ok)
	}
	if !r.Joined("general") {
		t.Fatalf("joined channel not reported")
	}
}

func TestDenyByDefault(t *testing.T) {
	r := NewRouter()
	if _, ok := r.Resolve(Hash("never-joined")); ok {
		t.Fatalf("unjoined channel resolved")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRouter()
	h := r.Register("ops")
	r.Unregister("ops")
	if _, ok := r.Resolve(h); ok {
		t.Fatalf("left channel still resolves")
	}
	if r.Joined("ops") {
		t.Fatalf("left channel still joined")
	}
	// Leaving twice is a no-op.
	r.Unregister("ops")
}

func TestList(t *testing.T) {
	r := NewRouter()
	r.Register("a")
	r.Register("b")
	got := r.List()
	if len(got) != 2 {
		t.Fatalf("list = %v", got)
	}
}
