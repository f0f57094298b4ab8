// Package wire implements the beacon frame codec. One frame is one
// broadcast payload:
//
//	[senderId:4][channelHash:2][timestampSeconds:4][content:0..10]
//
// Multi-byte fields are big-endian. A frame is never longer than 20 bytes.
package wire

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"beaconmesh/internal/mesh"
)

const (
	SenderIDLen   = 4
	HeaderLen     = 10
	MaxContentLen = 10
	MaxFrameLen   = HeaderLen + MaxContentLen
)

// Channel hashes live in a 15-bit space. The top three values are sentinels
// for control frames; real channel hashes stay below SentinelInvite.
const (
	HashMask       uint16 = 0x7FFF
	SentinelInvite uint16 = 0x7FFD
	SentinelDelete uint16 = 0x7FFE
	SentinelAck    uint16 = 0x7FFF
)

// Sentinel reports whether h is one of the reserved control-frame hashes.
func Sentinel(h uint16) bool {
	return h >= SentinelInvite
}

// Resolver maps a channel hash back to a joined channel id. Unresolved
// hashes make Decode drop the frame: membership is the privacy filter.
type Resolver func(hash uint16) (string, bool)

// Kind discriminates Decode results.
type Kind int

const (
	KindNone Kind = iota
	KindMessage
	KindInvite
	KindDeletion
)

type Invite struct {
	Hash      uint16
	Name      string
	ChannelID string
	SenderID  string
}

type Deletion struct {
	Name     string
	SenderID string
}

type Result struct {
	Kind     Kind
	Msg      mesh.Message
	Invite   Invite
	Deletion Deletion
}

// Encode serializes one frame. The sender id is truncated or zero-padded to
// 4 bytes, the timestamp loses sub-second precision, and content beyond 10
// bytes is cut at the byte boundary even if that splits a codepoint. Both
// truncations are accepted lossy behavior; callers that care use
// TruncateContent first.
func Encode(senderID string, hash uint16, ts time.Time, content string) []byte {
	body := []byte(content)
	if len(body) > MaxContentLen {
		body = body[:MaxContentLen]
	}
	out := make([]byte, HeaderLen, HeaderLen+len(body))
	copy(out[:SenderIDLen], senderID)
	binary.BigEndian.PutUint16(out[SenderIDLen:SenderIDLen+2], hash)
	binary.BigEndian.PutUint32(out[SenderIDLen+2:HeaderLen], uint32(ts.Unix()))
	return append(out, body...)
}

// Decode parses a frame. Frames shorter than the header fail closed and
// return KindNone; so do frames whose channel hash resolves to no joined
// channel. Acknowledgment frames come back as a minimal message on the
// reserved ack pseudo-channel so downstream dispatch stays uniform.
func Decode(data []byte, resolve Resolver) Result {
	if len(data) < HeaderLen {
		return Result{}
	}
	senderID := SenderID(data)
	hash := binary.BigEndian.Uint16(data[SenderIDLen : SenderIDLen+2])
	tsSec := binary.BigEndian.Uint32(data[SenderIDLen+2 : HeaderLen])
	ts := time.UnixMilli(int64(tsSec) * 1000)
	content := strings.ToValidUTF8(string(data[HeaderLen:]), "�")

	switch hash {
	case SentinelInvite:
		name, id, ok := strings.Cut(content, "|")
		if !ok || name == "" || id == "" {
			return Result{}
		}
		return Result{Kind: KindInvite, Invite: Invite{
			Name:      name,
			ChannelID: id,
			SenderID:  senderID,
		}}
	case SentinelDelete:
		if content == "" {
			return Result{}
		}
		return Result{Kind: KindDeletion, Deletion: Deletion{
			Name:     content,
			SenderID: senderID,
		}}
	case SentinelAck:
		return Result{Kind: KindMessage, Msg: mesh.Message{
			ID:        MessageID(data),
			ChannelID: mesh.ChannelAck,
			SenderID:  senderID,
			Timestamp: ts,
			Content:   content,
			Origin:    mesh.OriginMesh,
		}}
	}
	channelID, ok := resolve(hash)
	if !ok {
		return Result{}
	}
	return Result{Kind: KindMessage, Msg: mesh.Message{
		ID:        MessageID(data),
		ChannelID: channelID,
		SenderID:  senderID,
		Timestamp: ts,
		Content:   content,
		Origin:    mesh.OriginMesh,
	}}
}

// SenderID extracts the sender from the first 4 bytes, trimming zero
// padding. It works on any frame with at least 4 bytes so peer presence can
// be reported even for frames that fail to parse.
func SenderID(data []byte) string {
	if len(data) < SenderIDLen {
		return ""
	}
	raw := data[:SenderIDLen]
	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}
	return string(raw[:end])
}

// MessageID derives the wire-level message id from the exact frame bytes:
// 8 lowercase hex chars of the frame's BLAKE3 digest. Both ends of a
// transfer compute the same id for the same frame, which is what the
// acknowledgment layer keys on, and 8 bytes always fit the content field of
// an ack frame.
func MessageID(frame []byte) string {
	sum := blake3.Sum256(frame)
	return hex.EncodeToString(sum[:4])
}

// TruncateContent shortens content that would not fit a frame to 7 bytes
// plus "...", exactly 10 bytes. Applied by the sending layer before
// encoding; Encode itself cuts hard at the byte boundary as a backstop.
func TruncateContent(s string) string {
	if len(s) <= MaxContentLen {
		return s
	}
	return s[:MaxContentLen-3] + "..."
}
