// Package mesh holds the domain message model shared by the codec, the
// scheduler and the acknowledgment layer. The engine borrows a Message for
// transmission; ownership stays with the application layer.
package mesh

import (
	"time"

	"github.com/google/uuid"
)

// Origin records how a message reached this device.
type Origin int

const (
	// OriginMesh marks a message delivered over the local radio broadcast.
	OriginMesh Origin = iota
	// OriginBridge marks a message relayed by an internet-backed bridge.
	OriginBridge
)

// Reserved pseudo-channels. They never correspond to a joined channel and
// never surface to the upstream router as regular traffic.
const (
	// ChannelAck tags decoded acknowledgment frames so the reception
	// pipeline can hand them to the ack manager uniformly.
	ChannelAck = "__ack__"
	// ChannelInvite and ChannelDelete mark queued control messages so the
	// scheduler encodes them with the matching sentinel hash.
	ChannelInvite = "__invite__"
	ChannelDelete = "__delete__"
	// ChannelPresence carries heartbeat traffic, exempt from acking.
	ChannelPresence = "presence"
)

type Message struct {
	ID        string
	ChannelID string
	SenderID  string
	Nickname  string
	Timestamp time.Time
	Content   string
	Origin    Origin
}

// New builds an application-originated message with a fresh id and the
// current time. The timestamp is fixed at creation so re-serialization of
// the same message produces identical frame bytes.
func New(channelID, senderID, nickname, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		SenderID:  senderID,
		Nickname:  nickname,
		Timestamp: time.Now(),
		Content:   content,
	}
}

// Control returns true for pseudo-channel traffic that must never be
// surfaced as a visible message or acknowledged.
func Control(channelID string) bool {
	switch channelID {
	case ChannelAck, ChannelInvite, ChannelDelete:
		return true
	}
	return false
}
