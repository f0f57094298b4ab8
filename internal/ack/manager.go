// Package ack tracks outbound messages that need confirmation and drives
// retries through a caller-supplied callback. Acks ride the same beacon
// medium as everything else: an ack frame carries the wire id of the frame
// it confirms, nothing more.
package ack

import (
	"strings"
	"sync"
	"time"

	"beaconmesh/internal/mesh"
)

const (
	DefaultRetryTimeout = 5 * time.Second
	DefaultMaxRetries   = 3
)

// RequiresAck is the reliability policy predicate. Presence heartbeats,
// empty content and every pseudo-channel (including the ack channel itself,
// which would otherwise ack acks forever) are exempt; ordinary content is
// confirmed.
func RequiresAck(channelID, content string) bool {
	if mesh.Control(channelID) || channelID == mesh.ChannelPresence {
		return false
	}
	return strings.TrimSpace(content) != ""
}

// CreateAckContent encodes the payload of an ack frame for a wire message
// id. Wire ids are 8 hex chars, so the payload always fits a frame.
func CreateAckContent(id string) string {
	return id
}

// ExtractAckMessageID is the inverse of CreateAckContent:
// ExtractAckMessageID(CreateAckContent(id)) == id for every wire id.
func ExtractAckMessageID(content string) string {
	return strings.TrimSpace(content)
}

type record struct {
	id      string
	content string
	retries int
	acked   bool
	timer   *time.Timer
}

// Manager owns one retry timer per pending record. The retry callback runs
// on the timer goroutine and must not call back into the manager
// synchronously; the engine posts it onto its own loop.
type Manager struct {
	mu         sync.Mutex
	timeout    time.Duration
	maxRetries int
	onRetry    func(id string)
	records    map[string]*record
}

func NewManager(timeout time.Duration, maxRetries int, onRetry func(id string)) *Manager {
	if timeout <= 0 {
		timeout = DefaultRetryTimeout
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Manager{
		timeout:    timeout,
		maxRetries: maxRetries,
		onRetry:    onRetry,
		records:    make(map[string]*record),
	}
}

// RegisterOutbound begins tracking a message by its wire id and arms the
// retry timer. Re-registering a pending id resets its timer.
func (m *Manager) RegisterOutbound(id, content string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		rec.timer.Reset(m.timeout)
		return
	}
	rec := &record{id: id, content: content}
	rec.timer = time.AfterFunc(m.timeout, func() { m.fire(id) })
	m.records[id] = rec
}

func (m *Manager) fire(id string) {
	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok || rec.acked {
		m.mu.Unlock()
		return
	}
	rec.retries++
	if rec.retries > m.maxRetries {
		delete(m.records, id)
		m.mu.Unlock()
		return
	}
	rec.timer.Reset(m.timeout)
	cb := m.onRetry
	m.mu.Unlock()
	if cb != nil {
		cb(id)
	}
}

// OnAckReceived cancels the pending retry for id and marks it delivered.
// Unknown and already-acked ids are ignored.
func (m *Manager) OnAckReceived(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return false
	}
	rec.acked = true
	rec.timer.Stop()
	delete(m.records, id)
	return true
}

// Pending reports whether id is still awaiting confirmation.
func (m *Manager) Pending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

// ClearAll cancels every pending timer. Called on engine shutdown.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		rec.timer.Stop()
		delete(m.records, id)
	}
}
