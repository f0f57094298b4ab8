package engine

import "beaconmesh/internal/mesh"

// MessageRouter is the upstream collaborator that owns channel membership
// policy above the engine and receives everything the mesh delivers.
// ResolveChannelByHash is consulted after the engine's own joined-channel
// registry; returning false keeps the frame invisible.
type MessageRouter interface {
	OnMeshMessageReceived(msg mesh.Message, rssi int)
	OnChannelInviteReceived(hash uint16, name, senderID string)
	OnChannelDeletionReceived(name, senderID string)
	ResolveChannelByHash(hash uint16) (string, bool)
}

// PeerTracker learns about nearby devices. It is called for every received
// frame's sender, whether or not the rest of the frame parses.
type PeerTracker interface {
	OnPeerSeen(peerID string, rssi int)
}
