package dedup

import "testing"

func TestSeenAfterInsert(t *testing.T) {
	f := New(10)
	fp := Fingerprint([]byte("frame"))
	if f.Seen(fp) {
		t.Fatalf("fresh filter reported fingerprint seen")
	}
	f.Insert(fp)
	if !f.Seen(fp) {
		t.Fatalf("inserted fingerprint not seen")
	}
}

func TestInsertIdempotent(t *testing.T) {
	f := New(10)
	fp := Fingerprint([]byte("frame"))
	for i := 0; i < 5; i++ {
		f.Insert(fp)
	}
	if f.Len() != 1 {
		t.Fatalf("repeated insert grew the window to %d", f.Len())
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	f := New(100)
	fps := make([]uint64, 150)
	for i := range fps {
		fps[i] = Fingerprint([]byte{byte(i), byte(i >> 8), 'x'})
		f.Insert(fps[i])
	}
	if f.Len() != 100 {
		t.Fatalf("window size = %d, want 100", f.Len())
	}
	for i := 0; i < 50; i++ {
		if f.Seen(fps[i]) {
			t.Fatalf("entry %d survived eviction", i)
		}
	}
	for i := 50; i < 150; i++ {
		if !f.Seen(fps[i]) {
			t.Fatalf("entry %d evicted out of order", i)
		}
	}
}

func TestFingerprintDistinguishesFrames(t *testing.T) {
	a := Fingerprint([]byte("frame a"))
	b := Fingerprint([]byte("frame b"))
	if a == b {
		t.Fatalf("distinct frames share a fingerprint")
	}
	if a != Fingerprint([]byte("frame a")) {
		t.Fatalf("fingerprint not deterministic")
	}
}
