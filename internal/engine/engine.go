// Package engine is the mesh engine proper: the duty-cycled scheduler that
// shares one radio between listening and transmitting, plus the glue
// between codec, channel registry, dedup filter, outbound queue and
// acknowledgment manager. One engine instance per radio; collaborators are
// injected, lifecycle is explicit.
package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"beaconmesh/internal/ack"
	"beaconmesh/internal/channel"
	"beaconmesh/internal/dedup"
	"beaconmesh/internal/mesh"
	"beaconmesh/internal/outbound"
	"beaconmesh/internal/telemetry"
	"beaconmesh/internal/wire"
)

const eventBuffer = 256

type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	// StatusDisabled latches when the radio reports a capability failure
	// (unsupported or permission denied). It clears only on restart.
	StatusDisabled
)

type eventKind int

const (
	evWake eventKind = iota
	evFrame
	evAdvertiseUp
	evAdvertiseFail
	evRetry
)

type event struct {
	kind eventKind
	gen  uint64
	raw  []byte
	rssi int
	err  error
	id   string
}

type Engine struct {
	opts     Options
	channels *channel.Router
	dedup    *dedup.Filter
	queue    *outbound.Queue
	sent     *outbound.Cache
	acks     *ack.Manager

	events chan event
	cancel context.CancelFunc
	done   chan struct{}

	started  atomic.Bool
	disabled atomic.Bool

	// Loop-owned scheduler state. Only the run goroutine touches these, so
	// no locking; stale radio callbacks are filtered by generation.
	scanActive bool
	advActive  bool
	scanGen    uint64
	advGen     uint64
	scanIdleT  *time.Timer
	advWindowT *time.Timer
	scanRetryT *time.Timer
	drainT     *time.Timer
}

func New(opts Options) (*Engine, error) {
	if opts.Radio == nil {
		return nil, errors.New("engine: radio capability required")
	}
	if opts.Upstream == nil {
		return nil, errors.New("engine: upstream message router required")
	}
	opts.applyDefaults()
	e := &Engine{
		opts:     opts,
		channels: channel.NewRouter(),
		dedup:    dedup.New(opts.DedupCapacity),
		queue:    outbound.NewQueue(opts.QueueCapacity),
		sent:     outbound.NewCache(opts.SentCacheCapacity),
		events:   make(chan event, eventBuffer),
	}
	e.acks = ack.NewManager(opts.AckTimeout, opts.AckRetries, func(id string) {
		e.post(event{kind: evRetry, id: id})
	})
	return e, nil
}

// Start launches the run loop and begins scanning. It does not block on
// radio I/O.
func (e *Engine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}
	e.disabled.Store(false)
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx)
	return nil
}

// Stop cancels all timers and in-flight radio operations. Queued messages
// are discarded; there is no ordered drain.
func (e *Engine) Stop() {
	if !e.started.CompareAndSwap(true, false) {
		return
	}
	e.cancel()
	<-e.done
}

func (e *Engine) Status() Status {
	if e.disabled.Load() {
		return StatusDisabled
	}
	if e.started.Load() {
		return StatusRunning
	}
	return StatusStopped
}

// Send queues a message for broadcast. It never blocks on the radio and
// never fails: a full queue sacrifices its oldest entry instead. Content
// that would not fit a frame is truncated to 7 bytes plus "..." here, before
// the codec sees it. Messages whose channel requires confirmation are
// registered with the ack manager under their wire id.
func (e *Engine) Send(msg mesh.Message) {
	if msg.SenderID == "" {
		msg.SenderID = e.opts.SenderID
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if !mesh.Control(msg.ChannelID) {
		msg.Content = wire.TruncateContent(msg.Content)
	}
	frame := e.encodeOutbound(msg)
	wireID := wire.MessageID(frame)
	e.sent.Put(wireID, msg)
	if ack.RequiresAck(msg.ChannelID, msg.Content) {
		e.acks.RegisterOutbound(wireID, msg.Content)
	}
	e.enqueue(msg)
	e.post(event{kind: evWake})
}

// SendInvite broadcasts a channel invite control frame ("name|id" payload).
func (e *Engine) SendInvite(channelName, channelID string) {
	e.Send(mesh.Message{
		ChannelID: mesh.ChannelInvite,
		SenderID:  e.opts.SenderID,
		Timestamp: time.Now(),
		Content:   channelName + "|" + channelID,
	})
}

// SendDeletion broadcasts a channel tombstone control frame.
func (e *Engine) SendDeletion(channelName string) {
	e.Send(mesh.Message{
		ChannelID: mesh.ChannelDelete,
		SenderID:  e.opts.SenderID,
		Timestamp: time.Now(),
		Content:   channelName,
	})
}

// JoinChannel registers membership and returns the channel's wire hash.
// Only joined channels are visible on receive.
func (e *Engine) JoinChannel(channelID string) uint16 {
	return e.channels.Register(channelID)
}

func (e *Engine) LeaveChannel(channelID string) {
	e.channels.Unregister(channelID)
}

func (e *Engine) Joined(channelID string) bool {
	return e.channels.Joined(channelID)
}

func (e *Engine) encodeOutbound(msg mesh.Message) []byte {
	switch msg.ChannelID {
	case mesh.ChannelAck:
		return wire.Encode(msg.SenderID, wire.SentinelAck, msg.Timestamp, msg.Content)
	case mesh.ChannelInvite:
		return wire.Encode(msg.SenderID, wire.SentinelInvite, msg.Timestamp, msg.Content)
	case mesh.ChannelDelete:
		return wire.Encode(msg.SenderID, wire.SentinelDelete, msg.Timestamp, msg.Content)
	}
	return wire.Encode(msg.SenderID, channel.Hash(msg.ChannelID), msg.Timestamp, msg.Content)
}

func (e *Engine) enqueue(msg mesh.Message) {
	if e.queue.Enqueue(msg) {
		telemetry.QueueEvictions.Inc()
	}
	telemetry.QueueDepth.Set(float64(e.queue.Len()))
}

// post hands an event to the run loop without blocking the caller. The
// channel is sized for bursts; a saturated loop sheds frame events, which
// the radio layer's own repetition makes survivable.
func (e *Engine) post(ev event) {
	select {
	case e.events <- ev:
	default:
	}
}
