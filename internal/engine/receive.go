package engine

import (
	"time"

	"beaconmesh/internal/ack"
	"beaconmesh/internal/channel"
	"beaconmesh/internal/debuglog"
	"beaconmesh/internal/dedup"
	"beaconmesh/internal/mesh"
	"beaconmesh/internal/telemetry"
	"beaconmesh/internal/wire"
)

// handleFrame is the reception pipeline, run on the loop for every scan
// result: presence extraction first, dedup second, decode last. Duplicate
// receipt of the identical frame is the common case on a broadcast medium
// that repeats every advertisement, so the dedup check comes before any
// parsing work.
func (e *Engine) handleFrame(raw []byte, rssi int) {
	if len(raw) == 0 {
		return
	}
	telemetry.FramesReceived.Inc()
	if e.scanActive {
		resetTimer(e.scanIdleT, e.opts.ScanIdleTimeout)
	}

	// The sender id sits in the first 4 bytes; report the sighting even if
	// nothing else in the frame parses.
	if sender := wire.SenderID(raw); sender != "" && e.opts.Peers != nil {
		e.opts.Peers.OnPeerSeen(sender, rssi)
	}

	fp := dedup.Fingerprint(raw)
	if e.dedup.Seen(fp) {
		telemetry.FramesDuplicate.Inc()
		debuglog.RateLimitedf("dup_frame", time.Second, "duplicate frame dropped")
		return
	}
	e.dedup.Insert(fp)

	res := wire.Decode(raw, e.resolveChannel)
	switch res.Kind {
	case wire.KindNone:
		telemetry.FramesDropped.WithLabelValues("undecoded").Inc()
		debuglog.RateLimitedf("undecoded", time.Second, "frame dropped len=%d", len(raw))
	case wire.KindInvite:
		telemetry.ControlReceived.WithLabelValues("invite").Inc()
		hash := channel.Hash(res.Invite.ChannelID)
		e.opts.Upstream.OnChannelInviteReceived(hash, res.Invite.Name, res.Invite.SenderID)
	case wire.KindDeletion:
		telemetry.ControlReceived.WithLabelValues("deletion").Inc()
		e.opts.Upstream.OnChannelDeletionReceived(res.Deletion.Name, res.Deletion.SenderID)
	case wire.KindMessage:
		e.handleMessage(res.Msg, rssi)
	}
}

func (e *Engine) handleMessage(msg mesh.Message, rssi int) {
	if msg.ChannelID == mesh.ChannelAck {
		// Ack content is the wire id of the confirmed frame. Never surfaced
		// as a visible message.
		id := ack.ExtractAckMessageID(msg.Content)
		if e.acks.OnAckReceived(id) {
			telemetry.AcksReceived.Inc()
			e.sent.Delete(id)
			debuglog.Debugf("ack received id=%s from=%s", id, msg.SenderID)
		}
		return
	}
	telemetry.MessagesDelivered.Inc()
	e.opts.Upstream.OnMeshMessageReceived(msg, rssi)
	if ack.RequiresAck(msg.ChannelID, msg.Content) {
		e.sendAck(msg.ID)
	}
}

// sendAck synthesizes one acknowledgment beacon for a received frame and
// puts it on the normal transmit path.
func (e *Engine) sendAck(wireID string) {
	telemetry.AcksSent.Inc()
	e.enqueue(mesh.Message{
		ChannelID: mesh.ChannelAck,
		SenderID:  e.opts.SenderID,
		Timestamp: time.Now(),
		Content:   ack.CreateAckContent(wireID),
	})
	e.drainQueue()
}

func (e *Engine) resolveChannel(h uint16) (string, bool) {
	if id, ok := e.channels.Resolve(h); ok {
		return id, true
	}
	return e.opts.Upstream.ResolveChannelByHash(h)
}
