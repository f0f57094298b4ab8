package wire

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"beaconmesh/internal/mesh"
)

func staticResolver(m map[uint16]string) Resolver {
	return func(h uint16) (string, bool) {
		id, ok := m[h]
		return id, ok
	}
}

func TestEncodeLayout(t *testing.T) {
	ts := time.Unix(1700000000, 999_000_000) // sub-second precision is dropped
	frame := Encode("ab", 0x1234, ts, "hi")
	if len(frame) != HeaderLen+2 {
		t.Fatalf("frame length = %d, want %d", len(frame), HeaderLen+2)
	}
	want := []byte{'a', 'b', 0, 0, 0x12, 0x34, 0x65, 0x53, 0xf1, 0x00, 'h', 'i'}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %x, want %x", frame, want)
	}
}

func TestEncodeNeverExceedsMaxFrame(t *testing.T) {
	for _, content := range []string{"", "short", strings.Repeat("x", 10), strings.Repeat("y", 200)} {
		frame := Encode("abcdef", 0x0101, time.Now(), content)
		if len(frame) > MaxFrameLen {
			t.Fatalf("content %q produced %d-byte frame", content, len(frame))
		}
		if want := HeaderLen + min(len(content), MaxContentLen); len(frame) != want {
			t.Fatalf("content %q: frame length = %d, want %d", content, len(frame), want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	frame := Encode("ab12", 0x2F30, ts, "hello mesh")
	res := Decode(frame, staticResolver(map[uint16]string{0x2F30: "general"}))
	if res.Kind != KindMessage {
		t.Fatalf("kind = %d, want message", res.Kind)
	}
	m := res.Msg
	if m.SenderID != "ab12" {
		t.Fatalf("sender = %q", m.SenderID)
	}
	if m.ChannelID != "general" {
		t.Fatalf("channel = %q", m.ChannelID)
	}
	if !m.Timestamp.Equal(ts) {
		t.Fatalf("timestamp = %v, want %v", m.Timestamp, ts)
	}
	if m.Content != "hello mesh" {
		t.Fatalf("content = %q", m.Content)
	}
	if m.Origin != mesh.OriginMesh {
		t.Fatalf("origin = %d", m.Origin)
	}
	if m.ID != MessageID(frame) {
		t.Fatalf("id = %q, want frame-derived id", m.ID)
	}
}

func TestDecodeShortFrameFailsClosed(t *testing.T) {
	for n := 0; n < HeaderLen; n++ {
		res := Decode(make([]byte, n), staticResolver(nil))
		if res.Kind != KindNone {
			t.Fatalf("len %d decoded to kind %d", n, res.Kind)
		}
	}
}

func TestDecodeUnresolvedChannelInvisible(t *testing.T) {
	frame := Encode("peer", 0x0042, time.Now(), "secret")
	res := Decode(frame, staticResolver(map[uint16]string{}))
	if res.Kind != KindNone {
		t.Fatalf("unjoined channel frame surfaced: kind %d", res.Kind)
	}
}

func TestDecodeSenderZeroPadding(t *testing.T) {
	frame := Encode("ab", 0x0101, time.Now(), "")
	res := Decode(frame, staticResolver(map[uint16]string{0x0101: "c"}))
	if res.Msg.SenderID != "ab" {
		t.Fatalf("sender = %q, want zero padding trimmed", res.Msg.SenderID)
	}
}

func TestDecodeMalformedUTF8Substituted(t *testing.T) {
	frame := Encode("ab", 0x0101, time.Now(), "ok")
	frame = append(frame[:HeaderLen], 0xFF, 0xFE, 'a')
	res := Decode(frame, staticResolver(map[uint16]string{0x0101: "c"}))
	if res.Kind != KindMessage {
		t.Fatalf("malformed UTF-8 dropped the frame")
	}
	if !strings.HasSuffix(res.Msg.Content, "a") || !strings.Contains(res.Msg.Content, "�") {
		t.Fatalf("content = %q, want substitution", res.Msg.Content)
	}
}

func TestDecodeInvite(t *testing.T) {
	frame := Encode("ab", SentinelInvite, time.Now(), "ops|c42")
	res := Decode(frame, staticResolver(nil))
	if res.Kind != KindInvite {
		t.Fatalf("kind = %d, want invite", res.Kind)
	}
	if res.Invite.Name != "ops" || res.Invite.ChannelID != "c42" || res.Invite.SenderID != "ab" {
		t.Fatalf("invite = %+v", res.Invite)
	}
}

func TestDecodeMalformedInviteDropped(t *testing.T) {
	for _, content := range []string{"", "noseparator", "|id", "name|"} {
		frame := Encode("ab", SentinelInvite, time.Now(), content)
		if res := Decode(frame, staticResolver(nil)); res.Kind != KindNone {
			t.Fatalf("content %q: kind = %d, want none", content, res.Kind)
		}
	}
}

func TestDecodeDeletion(t *testing.T) {
	frame := Encode("ab", SentinelDelete, time.Now(), "ops")
	res := Decode(frame, staticResolver(nil))
	if res.Kind != KindDeletion {
		t.Fatalf("kind = %d, want deletion", res.Kind)
	}
	if res.Deletion.Name != "ops" || res.Deletion.SenderID != "ab" {
		t.Fatalf("deletion = %+v", res.Deletion)
	}
}

func TestDecodeAckTaggedToPseudoChannel(t *testing.T) {
	frame := Encode("ab", SentinelAck, time.Now(), "0011aabb")
	res := Decode(frame, staticResolver(nil))
	if res.Kind != KindMessage {
		t.Fatalf("kind = %d, want message", res.Kind)
	}
	if res.Msg.ChannelID != mesh.ChannelAck {
		t.Fatalf("channel = %q, want ack pseudo-channel", res.Msg.ChannelID)
	}
	if res.Msg.Content != "0011aabb" {
		t.Fatalf("content = %q", res.Msg.Content)
	}
}

func TestTruncateContent(t *testing.T) {
	got := TruncateContent("this is a long message")
	if got != "this is..." {
		t.Fatalf("truncated = %q, want %q", got, "this is...")
	}
	if len(got) != MaxContentLen {
		t.Fatalf("truncated length = %d", len(got))
	}
	if TruncateContent("short") != "short" {
		t.Fatalf("short content modified")
	}
	frame := Encode("abcd", 0x0101, time.Now(), got)
	if len(frame) > MaxFrameLen {
		t.Fatalf("truncated content still overflows: %d bytes", len(frame))
	}
}

func TestMessageIDStableAndShort(t *testing.T) {
	frame := Encode("ab", 0x0101, time.Unix(1700000000, 0), "x")
	id := MessageID(frame)
	if id != MessageID(frame) {
		t.Fatalf("id not deterministic")
	}
	if len(id) != 8 {
		t.Fatalf("id length = %d, want 8", len(id))
	}
	other := Encode("ab", 0x0101, time.Unix(1700000001, 0), "x")
	if MessageID(other) == id {
		t.Fatalf("distinct frames share an id")
	}
}

func TestSenderIDPartialFrame(t *testing.T) {
	if got := SenderID([]byte{'a', 'b', 0, 0, 0x01}); got != "ab" {
		t.Fatalf("sender = %q", got)
	}
	if got := SenderID([]byte{'a'}); got != "" {
		t.Fatalf("sub-4-byte frame yielded sender %q", got)
	}
}
